package service

import (
	"context"
	"fmt"
	"log"

	"formbridge/internal/model"
	"formbridge/internal/repository"
)

// ResponseService validates and stores submitted answers, both from
// direct client submissions and from the NLP service callback.
type ResponseService struct {
	formRepo     repository.FormRepo
	responseRepo repository.ResponseRepo
	broadcaster  Broadcaster
}

// NewResponseService creates a new response service
func NewResponseService(formRepo repository.FormRepo, responseRepo repository.ResponseRepo) *ResponseService {
	return &ResponseService{
		formRepo:     formRepo,
		responseRepo: responseRepo,
	}
}

// SetBroadcaster injects the live-feed broadcaster (the ws hub
// implements Broadcaster; injected late to avoid an import cycle)
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SubmitRequest is the payload for a direct submission
type SubmitRequest struct {
	FormID  string         `json:"formId"`
	Answers []model.Answer `json:"answers"`
}

// Submit stores a direct submission. Answers are stored verbatim;
// per-question validation is the submitting client's job. RequireLogin
// and AllowMultipleResponses are enforced here.
func (s *ResponseService) Submit(ctx context.Context, req *SubmitRequest, requester *model.UserClaims) (*model.Response, error) {
	if req.FormID == "" || req.Answers == nil {
		return nil, fmt.Errorf("formId and answers array are required: %w", ErrBadRequest)
	}

	form, err := s.formRepo.GetByID(ctx, req.FormID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", req.FormID, ErrNotFound)
	}

	submittedBy := ""
	if requester != nil {
		submittedBy = requester.UserID
	}

	if form.Settings.RequireLogin && submittedBy == "" {
		return nil, fmt.Errorf("form %s requires login to respond: %w", req.FormID, ErrForbidden)
	}
	if !form.Settings.AllowMultipleResponses && submittedBy != "" {
		n, err := s.responseRepo.CountByFormAndSubmitter(ctx, req.FormID, submittedBy)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("form %s already answered: %w", req.FormID, ErrConflict)
		}
	}

	response := &model.Response{
		FormID:      req.FormID,
		Answers:     req.Answers,
		SubmittedBy: submittedBy,
		Status:      model.ResponseSubmitted,
	}

	if _, err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, err
	}

	s.notifySubmitted(form, response)
	return response, nil
}

// SubmitViaCallback stores a submission from the NLP service. Labels
// are matched case-sensitively against question prompts; unmatched
// labels are dropped with a warning. A missing form is acknowledged
// without a write so the external service does not retry forever; the
// returned response is nil in that case.
func (s *ResponseService) SubmitViaCallback(ctx context.Context, formID string, labeled map[string]interface{}) (*model.Response, error) {
	if formID == "" || labeled == nil {
		return nil, fmt.Errorf("formId and responses object are required: %w", ErrBadRequest)
	}

	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		log.Printf("callback received for non-existent form %s", formID)
		return nil, nil
	}

	answers := make([]model.Answer, 0, len(labeled))
	for label, answer := range labeled {
		question := form.QuestionByPrompt(label)
		if question == nil {
			log.Printf("callback for form %s: no question matching label %q", formID, label)
			continue
		}
		answers = append(answers, model.Answer{QuestionID: question.ID, Answer: answer})
	}

	response := &model.Response{
		FormID:  formID,
		Answers: answers,
		Status:  model.ResponseCompleted,
	}

	if _, err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, err
	}

	s.notifySubmitted(form, response)
	return response, nil
}

// ListByForm returns all responses for a form, gated by the parent
// form's write rule
func (s *ResponseService) ListByForm(ctx context.Context, formID string, requester *model.UserClaims) ([]*model.Response, error) {
	if _, err := s.loadManagedForm(ctx, formID, requester); err != nil {
		return nil, err
	}
	return s.responseRepo.GetByForm(ctx, formID)
}

// Get returns one response, gated by its parent form's write rule
func (s *ResponseService) Get(ctx context.Context, responseID string, requester *model.UserClaims) (*model.Response, error) {
	response, _, err := s.loadManagedResponse(ctx, responseID, requester)
	return response, err
}

// Delete hard-deletes one response, gated by its parent form's write
// rule
func (s *ResponseService) Delete(ctx context.Context, responseID string, requester *model.UserClaims) error {
	_, _, err := s.loadManagedResponse(ctx, responseID, requester)
	if err != nil {
		return err
	}
	return s.responseRepo.Delete(ctx, responseID)
}

// AppendConversationEntry appends one utterance to a response's
// conversation log during an in-progress chat session
func (s *ResponseService) AppendConversationEntry(ctx context.Context, responseID, role, content string) error {
	if role != "user" && role != "assistant" {
		return fmt.Errorf("role must be user or assistant: %w", ErrBadRequest)
	}
	if content == "" {
		return fmt.Errorf("content is required: %w", ErrBadRequest)
	}

	response, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return err
	}
	if response == nil {
		return fmt.Errorf("response %s: %w", responseID, ErrNotFound)
	}

	return s.responseRepo.AppendConversationEntry(ctx, responseID, model.ConversationEntry{
		Role:    role,
		Content: content,
	})
}

func (s *ResponseService) loadManagedForm(ctx context.Context, formID string, requester *model.UserClaims) (*model.Form, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}
	if !CanManageForm(form, requester) {
		return nil, fmt.Errorf("responses of form %s: %w", formID, ErrForbidden)
	}
	return form, nil
}

func (s *ResponseService) loadManagedResponse(ctx context.Context, responseID string, requester *model.UserClaims) (*model.Response, *model.Form, error) {
	response, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return nil, nil, err
	}
	if response == nil {
		return nil, nil, fmt.Errorf("response %s: %w", responseID, ErrNotFound)
	}

	form, err := s.formRepo.GetByID(ctx, response.FormID)
	if err != nil {
		return nil, nil, err
	}
	if form == nil {
		return nil, nil, fmt.Errorf("form %s: %w", response.FormID, ErrNotFound)
	}
	if !CanManageForm(form, requester) {
		return nil, nil, fmt.Errorf("response %s: %w", responseID, ErrForbidden)
	}
	return response, form, nil
}

func (s *ResponseService) notifySubmitted(form *model.Form, response *model.Response) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToCreator(form.ID, "response_submitted", map[string]interface{}{
		"responseId":  response.ID,
		"formId":      form.ID,
		"status":      response.Status,
		"submittedAt": response.SubmittedAt,
	})
}
