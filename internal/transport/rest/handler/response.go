package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"formbridge/internal/service"
	"formbridge/internal/transport/rest/middleware"
)

// ResponseHandler handles response endpoints
type ResponseHandler struct {
	responseSvc *service.ResponseService
	exportSvc   *service.ExportService
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService, exportSvc *service.ExportService) *ResponseHandler {
	return &ResponseHandler{
		responseSvc: responseSvc,
		exportSvc:   exportSvc,
	}
}

// Submit handles POST /v1/responses. Anonymous submissions are allowed
// when the form permits them.
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "formId and answers array are required")
		return
	}

	response, err := h.responseSvc.Submit(r.Context(), &req, middleware.GetClaims(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// CallbackRequest is the NLP service's final answer payload
type CallbackRequest struct {
	FormID    string                 `json:"formId"`
	Responses map[string]interface{} `json:"responses"`
}

// Callback handles POST /v1/responses/callback. A callback for a
// missing form is acknowledged with 200 and no write.
func (h *ResponseHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "formId and responses object are required")
		return
	}

	response, err := h.responseSvc.SubmitViaCallback(r.Context(), req.FormID, req.Responses)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if response == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "callback acknowledged, but form not found"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"responseId": response.ID})
}

// ConversationEntryRequest is one utterance to append to a response's
// conversation log
type ConversationEntryRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AppendConversation handles POST /v1/responses/{responseId}/conversation
func (h *ResponseHandler) AppendConversation(w http.ResponseWriter, r *http.Request) {
	responseID := mux.Vars(r)["responseId"]

	var req ConversationEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "role and content are required")
		return
	}

	if err := h.responseSvc.AppendConversationEntry(r.Context(), responseID, req.Role, req.Content); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "conversation entry added"})
}

// ListByForm handles GET /v1/responses/form/{formId}
func (h *ResponseHandler) ListByForm(w http.ResponseWriter, r *http.Request) {
	formID := mux.Vars(r)["formId"]

	responses, err := h.responseSvc.ListByForm(r.Context(), formID, middleware.GetClaims(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"responses": responses})
}

// Export handles GET /v1/responses/form/{formId}/export. The CSV is
// built in memory and sent as a download; nothing is persisted.
func (h *ResponseHandler) Export(w http.ResponseWriter, r *http.Request) {
	formID := mux.Vars(r)["formId"]

	var buf bytes.Buffer
	if err := h.exportSvc.ExportCSV(r.Context(), formID, middleware.GetClaims(r.Context()), &buf); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=form_%s_responses.csv", formID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Get handles GET /v1/responses/{responseId}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	responseID := mux.Vars(r)["responseId"]

	response, err := h.responseSvc.Get(r.Context(), responseID, middleware.GetClaims(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /v1/responses/{responseId}
func (h *ResponseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	responseID := mux.Vars(r)["responseId"]

	if err := h.responseSvc.Delete(r.Context(), responseID, middleware.GetClaims(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "response deleted"})
}
