package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"formbridge/internal/model"
	"formbridge/internal/repository"
	"formbridge/internal/service"
)

var _ = Describe("FormService", func() {
	var (
		svc       *service.FormService
		formRepo  *mockFormRepo
		formCache *mockFormCache
		ctx       context.Context
		creator   *model.UserClaims
		stranger  *model.UserClaims
		admin     *model.UserClaims
	)

	BeforeEach(func() {
		ctx = context.Background()
		formRepo = &mockFormRepo{}
		formCache = &mockFormCache{}
		svc = service.NewFormService(formRepo, formCache)
		creator = &model.UserClaims{UserID: "u-creator", Role: model.RoleUser}
		stranger = &model.UserClaims{UserID: "u-other", Role: model.RoleUser}
		admin = &model.UserClaims{UserID: "u-admin", Role: model.RoleAdmin}
	})

	Describe("Create", func() {
		It("creates a draft with defaults and per-question dialogues", func() {
			form, err := svc.Create(ctx, &service.CreateFormRequest{
				Title: "Onboarding",
				Questions: []model.Question{
					{Type: model.QuestionText, Question: "Full Name"},
					{Type: model.QuestionNumber, Question: "Age"},
					{Type: model.QuestionDate, Question: "Start Date"},
					{Type: model.QuestionSingleChoice, Question: "Favorite color?", Options: []string{"red", "blue"}},
				},
			}, "u-creator")

			Expect(err).NotTo(HaveOccurred())
			Expect(form.Status).To(Equal(model.FormDraft))
			Expect(form.Creator).To(Equal("u-creator"))
			Expect(form.Settings.AllowMultipleResponses).To(BeTrue())
			Expect(form.ChatConfig.Enabled).To(BeTrue())
			Expect(form.ChatConfig.Personality).To(Equal("professional"))
			Expect(form.ConversationalDialogues).To(Equal([]string{
				"Could you please tell me your full name?",
				"What is your age?",
				"When is your start date?",
				"Favorite color?",
			}))
			for _, q := range form.Questions {
				Expect(q.ID).NotTo(BeEmpty())
			}
			Expect(formRepo.createCalls).To(Equal(1))
		})

		It("rejects a missing title", func() {
			_, err := svc.Create(ctx, &service.CreateFormRequest{}, "u-creator")
			Expect(err).To(MatchError(service.ErrBadRequest))
			Expect(formRepo.createCalls).To(BeZero())
		})

		It("rejects a question without a prompt", func() {
			_, err := svc.Create(ctx, &service.CreateFormRequest{
				Title:     "Broken",
				Questions: []model.Question{{Type: model.QuestionText}},
			}, "u-creator")
			Expect(err).To(MatchError(service.ErrBadRequest))
		})

		It("keeps explicit settings", func() {
			form, err := svc.Create(ctx, &service.CreateFormRequest{
				Title:    "Strict",
				Settings: &model.FormSettings{RequireLogin: true},
			}, "u-creator")
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Settings.RequireLogin).To(BeTrue())
			Expect(form.Settings.AllowMultipleResponses).To(BeFalse())
		})
	})

	Describe("Get", func() {
		draft := func() *model.Form {
			return &model.Form{ID: "f1", Creator: "u-creator", Status: model.FormDraft, Title: "Draft"}
		}
		published := func() *model.Form {
			return &model.Form{ID: "f1", Creator: "u-creator", Status: model.FormPublished, Title: "Live"}
		}

		It("returns not found for an unknown form", func() {
			_, err := svc.Get(ctx, "missing", creator)
			Expect(err).To(MatchError(service.ErrNotFound))
		})

		It("hides drafts from anonymous readers", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return draft(), nil
			}
			_, err := svc.Get(ctx, "f1", nil)
			Expect(err).To(MatchError(service.ErrForbidden))
		})

		It("hides drafts from other users", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return draft(), nil
			}
			_, err := svc.Get(ctx, "f1", stranger)
			Expect(err).To(MatchError(service.ErrForbidden))
		})

		It("lets the creator read their own draft", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return draft(), nil
			}
			form, err := svc.Get(ctx, "f1", creator)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Title).To(Equal("Draft"))
			Expect(formCache.setCalls).To(BeZero())
		})

		It("shows drafts with allowAnonymous to everyone", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				f := draft()
				f.Settings.AllowAnonymous = true
				return f, nil
			}
			_, err := svc.Get(ctx, "f1", nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("serves published forms anonymously and caches them", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return published(), nil
			}
			form, err := svc.Get(ctx, "f1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Title).To(Equal("Live"))
			Expect(formCache.setCalls).To(Equal(1))
		})

		It("serves a cache hit without touching the repository", func() {
			formCache.getFn = func(_ context.Context, id string) (*model.Form, error) {
				return published(), nil
			}
			repoHit := false
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				repoHit = true
				return nil, nil
			}
			form, err := svc.Get(ctx, "f1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Title).To(Equal("Live"))
			Expect(repoHit).To(BeFalse())
			Expect(formCache.setCalls).To(BeZero())
		})
	})

	Describe("Update", func() {
		stored := func() *model.Form {
			return &model.Form{
				ID:      "f1",
				Creator: "u-creator",
				Status:  model.FormPublished,
				Title:   "Before",
				Version: 3,
				Questions: []model.Question{
					{ID: "q1", Type: model.QuestionText, Question: "Full Name"},
				},
				ConversationalDialogues: []string{"Could you please tell me your full name?"},
			}
		}

		BeforeEach(func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return stored(), nil
			}
		})

		It("replaces fields, recomputes dialogues and invalidates the cache", func() {
			form, err := svc.Update(ctx, "f1", creator, &service.UpdateFormRequest{
				CreateFormRequest: service.CreateFormRequest{
					Title: "After",
					Questions: []model.Question{
						{ID: "q1", Type: model.QuestionText, Question: "Full Name"},
						{Type: model.QuestionNumber, Question: "Age"},
					},
				},
				Version: 3,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(form.Title).To(Equal("After"))
			Expect(form.Questions[0].ID).To(Equal("q1"))
			Expect(form.Questions[1].ID).NotTo(BeEmpty())
			Expect(form.ConversationalDialogues).To(Equal([]string{
				"Could you please tell me your full name?",
				"What is your age?",
			}))
			Expect(form.Version).To(Equal(int64(4)))
			Expect(formCache.invalidateCalls).To(Equal(1))
		})

		It("rejects a stale version", func() {
			_, err := svc.Update(ctx, "f1", creator, &service.UpdateFormRequest{
				CreateFormRequest: service.CreateFormRequest{Title: "After"},
				Version:           2,
			})
			Expect(err).To(MatchError(service.ErrConflict))
			Expect(formRepo.replaceCalls).To(BeZero())
		})

		It("maps a lost replace race to a conflict", func() {
			formRepo.replaceFn = func(_ context.Context, form *model.Form) error {
				return repository.ErrVersionMismatch
			}
			_, err := svc.Update(ctx, "f1", creator, &service.UpdateFormRequest{
				CreateFormRequest: service.CreateFormRequest{Title: "After"},
				Version:           3,
			})
			Expect(err).To(MatchError(service.ErrConflict))
		})

		It("rejects non-creators", func() {
			_, err := svc.Update(ctx, "f1", stranger, &service.UpdateFormRequest{
				CreateFormRequest: service.CreateFormRequest{Title: "After"},
				Version:           3,
			})
			Expect(err).To(MatchError(service.ErrForbidden))
		})

		It("allows admins", func() {
			_, err := svc.Update(ctx, "f1", admin, &service.UpdateFormRequest{
				CreateFormRequest: service.CreateFormRequest{Title: "After"},
				Version:           3,
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Publish", func() {
		BeforeEach(func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return &model.Form{ID: "f1", Creator: "u-creator", Status: model.FormDraft}, nil
			}
		})

		It("marks the form published with a timestamp", func() {
			var setAt time.Time
			formRepo.setPublishedFn = func(_ context.Context, id string, publishedAt time.Time) error {
				setAt = publishedAt
				return nil
			}
			form, err := svc.Publish(ctx, "f1", creator)
			Expect(err).NotTo(HaveOccurred())
			Expect(form.Status).To(Equal(model.FormPublished))
			Expect(form.PublishedAt).NotTo(BeNil())
			Expect(*form.PublishedAt).To(Equal(setAt))
			Expect(formCache.invalidateCalls).To(Equal(1))
		})

		It("rejects non-creators", func() {
			_, err := svc.Publish(ctx, "f1", stranger)
			Expect(err).To(MatchError(service.ErrForbidden))
		})
	})

	Describe("Delete", func() {
		It("deletes and invalidates the cache", func() {
			formRepo.getByIDFn = func(_ context.Context, id string) (*model.Form, error) {
				return &model.Form{ID: "f1", Creator: "u-creator"}, nil
			}
			deleted := ""
			formRepo.deleteFn = func(_ context.Context, id string) error {
				deleted = id
				return nil
			}
			Expect(svc.Delete(ctx, "f1", creator)).To(Succeed())
			Expect(deleted).To(Equal("f1"))
			Expect(formCache.invalidateCalls).To(Equal(1))
		})

		It("returns not found before checking permissions", func() {
			err := svc.Delete(ctx, "missing", stranger)
			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})
})
