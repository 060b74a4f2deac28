package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"formbridge/internal/config"
	"formbridge/internal/model"
	"formbridge/internal/service"
	"formbridge/internal/transport/rest"
	"formbridge/internal/transport/ws"
)

var _ = Describe("Router", Ordered, func() {
	var (
		router http.Handler

		creatorToken string
		otherToken   string
		formID       string
		formVersion  int64
		responseID   string
	)

	BeforeAll(func() {
		userRepo := newMemUserRepo()
		formRepo := newMemFormRepo()
		responseRepo := newMemResponseRepo()

		authSvc := service.NewAuthService(userRepo, &config.AuthConfig{
			JWTSecret:     []byte("router-test-secret"),
			TokenTTLHours: 1,
		})
		formSvc := service.NewFormService(formRepo, noopFormCache{})
		responseSvc := service.NewResponseService(formRepo, responseRepo)
		exportSvc := service.NewExportService(formRepo, responseRepo, userRepo)

		router = rest.NewRouter(&rest.Container{
			AuthService:     authSvc,
			FormService:     formSvc,
			ResponseService: responseSvc,
			ExportService:   exportSvc,
			WSHub:           ws.NewHub(),
		})
	})

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var payload *bytes.Buffer
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			payload = bytes.NewBuffer(data)
		} else {
			payload = &bytes.Buffer{}
		}

		req := httptest.NewRequest(method, path, payload)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, out interface{}) {
		Expect(json.Unmarshal(rec.Body.Bytes(), out)).To(Succeed())
	}

	It("serves the health check", func() {
		rec := do(http.MethodGet, "/health", "", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("registers a creator", func() {
		rec := do(http.MethodPost, "/v1/auth/register", "", model.RegisterRequest{
			Name:     "Creator",
			Email:    "creator@example.com",
			Password: "secret123",
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var auth model.AuthResponse
		decode(rec, &auth)
		Expect(auth.Token).NotTo(BeEmpty())
		creatorToken = auth.Token
	})

	It("rejects a duplicate email with a conflict", func() {
		rec := do(http.MethodPost, "/v1/auth/register", "", model.RegisterRequest{
			Name:     "Copycat",
			Email:    "creator@example.com",
			Password: "secret123",
		})
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("registers a second user", func() {
		rec := do(http.MethodPost, "/v1/auth/register", "", model.RegisterRequest{
			Name:     "Other",
			Email:    "other@example.com",
			Password: "secret123",
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var auth model.AuthResponse
		decode(rec, &auth)
		otherToken = auth.Token
	})

	It("logs in with the registered credentials", func() {
		rec := do(http.MethodPost, "/v1/auth/login", "", model.LoginRequest{
			Email:    "creator@example.com",
			Password: "secret123",
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("rejects a wrong password", func() {
		rec := do(http.MethodPost, "/v1/auth/login", "", model.LoginRequest{
			Email:    "creator@example.com",
			Password: "nope",
		})
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("requires a token to create forms", func() {
		rec := do(http.MethodPost, "/v1/forms", "", service.CreateFormRequest{Title: "Nope"})
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("creates a draft form with derived dialogues", func() {
		rec := do(http.MethodPost, "/v1/forms", creatorToken, service.CreateFormRequest{
			Title: "Customer Onboarding",
			Questions: []model.Question{
				{Type: model.QuestionText, Question: "Full Name", Required: true},
				{Type: model.QuestionNumber, Question: "Age"},
			},
			UseNlpChat: true,
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var form model.Form
		decode(rec, &form)
		Expect(form.ID).NotTo(BeEmpty())
		Expect(form.Status).To(Equal(model.FormDraft))
		Expect(form.ConversationalDialogues).To(Equal([]string{
			"Could you please tell me your full name?",
			"What is your age?",
		}))
		formID = form.ID
		formVersion = form.Version
	})

	It("hides the draft from anonymous readers", func() {
		rec := do(http.MethodGet, "/v1/forms/"+formID, "", nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("hides the draft from other users", func() {
		rec := do(http.MethodGet, "/v1/forms/"+formID, otherToken, nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("returns 404 for an unknown form before any permission check", func() {
		rec := do(http.MethodGet, "/v1/forms/no-such-form", "", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects an update with a stale version", func() {
		rec := do(http.MethodPut, "/v1/forms/"+formID, creatorToken, map[string]interface{}{
			"title":   "Customer Onboarding v2",
			"version": formVersion + 7,
		})
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("updates the form and bumps the version", func() {
		rec := do(http.MethodPut, "/v1/forms/"+formID, creatorToken, map[string]interface{}{
			"title": "Customer Onboarding v2",
			"questions": []model.Question{
				{Type: model.QuestionText, Question: "Full Name", Required: true},
				{Type: model.QuestionNumber, Question: "Age"},
			},
			"useNlpChat": true,
			"version":    formVersion,
		})
		Expect(rec.Code).To(Equal(http.StatusOK))

		var form model.Form
		decode(rec, &form)
		Expect(form.Title).To(Equal("Customer Onboarding v2"))
		Expect(form.Version).To(Equal(formVersion + 1))
		formVersion = form.Version
	})

	It("rejects publishing by other users", func() {
		rec := do(http.MethodPost, "/v1/forms/"+formID+"/publish", otherToken, nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("publishes the form", func() {
		rec := do(http.MethodPost, "/v1/forms/"+formID+"/publish", creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var form model.Form
		decode(rec, &form)
		Expect(form.Status).To(Equal(model.FormPublished))
		Expect(form.PublishedAt).NotTo(BeNil())
	})

	It("serves the published form anonymously", func() {
		rec := do(http.MethodGet, "/v1/forms/"+formID, "", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("accepts an anonymous direct submission", func() {
		var form model.Form
		decode(do(http.MethodGet, "/v1/forms/"+formID, "", nil), &form)

		rec := do(http.MethodPost, "/v1/responses", "", service.SubmitRequest{
			FormID: formID,
			Answers: []model.Answer{
				{QuestionID: form.Questions[0].ID, Answer: "Ada Lovelace"},
				{QuestionID: form.Questions[1].ID, Answer: 37},
			},
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var response model.Response
		decode(rec, &response)
		Expect(response.Status).To(Equal(model.ResponseSubmitted))
		Expect(response.SubmittedBy).To(BeEmpty())
		responseID = response.ID
	})

	It("accepts an NLP callback keyed by question prompts", func() {
		rec := do(http.MethodPost, "/v1/responses/callback", "", map[string]interface{}{
			"formId": formID,
			"responses": map[string]interface{}{
				"Full Name": "Grace Hopper",
				"Age":       "85",
				"Unknown":   "dropped silently",
			},
		})
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var body map[string]string
		decode(rec, &body)
		Expect(body["responseId"]).NotTo(BeEmpty())
	})

	It("acknowledges a callback for an unknown form without storing it", func() {
		rec := do(http.MethodPost, "/v1/responses/callback", "", map[string]interface{}{
			"formId":    "no-such-form",
			"responses": map[string]interface{}{"Full Name": "Nobody"},
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("form not found"))
	})

	It("hides responses from other users", func() {
		rec := do(http.MethodGet, "/v1/responses/form/"+formID, otherToken, nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("lists responses for the creator", func() {
		rec := do(http.MethodGet, "/v1/responses/form/"+formID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body struct {
			Responses []model.Response `json:"responses"`
		}
		decode(rec, &body)
		Expect(body.Responses).To(HaveLen(2))
	})

	It("exports responses as CSV", func() {
		rec := do(http.MethodGet, "/v1/responses/form/"+formID+"/export", creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring(formID))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(ContainSubstring("Submitted By,Submission Date,Status"))
		Expect(lines[0]).To(ContainSubstring("Full Name"))
		Expect(rec.Body.String()).To(ContainSubstring("Ada Lovelace"))
		Expect(rec.Body.String()).To(ContainSubstring("Grace Hopper"))
	})

	It("refuses the export to other users", func() {
		rec := do(http.MethodGet, "/v1/responses/form/"+formID+"/export", otherToken, nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("appends a conversation entry to a response", func() {
		rec := do(http.MethodPost, "/v1/responses/"+responseID+"/conversation", "", map[string]interface{}{
			"role":    "assistant",
			"content": "What is your full name?",
		})
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/v1/responses/"+responseID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var response model.Response
		decode(rec, &response)
		Expect(response.ConversationHistory).To(HaveLen(1))
		Expect(response.ConversationHistory[0].Role).To(Equal("assistant"))
		Expect(response.ConversationHistory[0].Content).To(Equal("What is your full name?"))
	})

	It("rejects a conversation entry with an unknown role", func() {
		rec := do(http.MethodPost, "/v1/responses/"+responseID+"/conversation", "", map[string]interface{}{
			"role":    "moderator",
			"content": "hello",
		})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("deletes a single response", func() {
		rec := do(http.MethodDelete, "/v1/responses/"+responseID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/v1/responses/"+responseID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("deletes the form", func() {
		rec := do(http.MethodDelete, "/v1/forms/"+formID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/v1/forms/"+formID, creatorToken, nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
