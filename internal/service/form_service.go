package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"formbridge/internal/cache"
	"formbridge/internal/model"
	"formbridge/internal/repository"
)

// FormService handles the form lifecycle: create, read, update,
// publish, delete. Published forms are served through the Redis cache,
// which is invalidated on every write.
type FormService struct {
	formRepo  repository.FormRepo
	formCache cache.FormCache
}

// NewFormService creates a new form service
func NewFormService(formRepo repository.FormRepo, formCache cache.FormCache) *FormService {
	return &FormService{
		formRepo:  formRepo,
		formCache: formCache,
	}
}

// CreateFormRequest is the payload for creating a form. Settings left
// nil fall back to defaults (multiple responses allowed).
type CreateFormRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Questions   []model.Question    `json:"questions"`
	Settings    *model.FormSettings `json:"settings"`
	ChatConfig  *model.ChatConfig   `json:"chatConfig"`
	UseNlpChat  bool                `json:"useNlpChat"`
}

// UpdateFormRequest replaces every client-ownable field wholesale:
// editing one question means resending the whole questions array.
// Version must match the stored form.
type UpdateFormRequest struct {
	CreateFormRequest
	Version int64 `json:"version"`
}

// Create persists a draft form owned by creatorID, deriving one
// conversational phrasing per question.
func (s *FormService) Create(ctx context.Context, req *CreateFormRequest, creatorID string) (*model.Form, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", ErrBadRequest)
	}
	for i := range req.Questions {
		if req.Questions[i].Question == "" || req.Questions[i].Type == "" {
			return nil, fmt.Errorf("question %d needs a prompt and a type: %w", i, ErrBadRequest)
		}
	}

	settings := model.FormSettings{AllowMultipleResponses: true}
	if req.Settings != nil {
		settings = *req.Settings
	}
	chatConfig := model.ChatConfig{Enabled: true, Personality: "professional"}
	if req.ChatConfig != nil {
		chatConfig = *req.ChatConfig
	}

	form := &model.Form{
		Title:                   req.Title,
		Description:             req.Description,
		Creator:                 creatorID,
		Questions:               assignQuestionIDs(req.Questions),
		Settings:                settings,
		ChatConfig:              chatConfig,
		Status:                  model.FormDraft,
		ConversationalDialogues: DeriveDialogues(req.Questions),
		UseNlpChat:              req.UseNlpChat,
	}

	if _, err := s.formRepo.Create(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// Get returns the form when the read rule permits. Published forms are
// read through and written back to the cache.
func (s *FormService) Get(ctx context.Context, formID string, requester *model.UserClaims) (*model.Form, error) {
	form, err := s.formCache.Get(ctx, formID)
	if err != nil {
		log.Printf("form cache read for %s failed: %v", formID, err)
	}
	cached := form != nil

	if form == nil {
		form, err = s.formRepo.GetByID(ctx, formID)
		if err != nil {
			return nil, err
		}
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}

	if !CanReadForm(form, requester) {
		return nil, fmt.Errorf("form %s: %w", formID, ErrForbidden)
	}

	if !cached && form.Status == model.FormPublished {
		if err := s.formCache.Set(ctx, form); err != nil {
			log.Printf("form cache write for %s failed: %v", formID, err)
		}
	}
	return form, nil
}

// Update replaces client-ownable fields, recomputes conversational
// dialogues and bumps the version. A stale version fails with a
// conflict.
func (s *FormService) Update(ctx context.Context, formID string, requester *model.UserClaims, req *UpdateFormRequest) (*model.Form, error) {
	form, err := s.loadManaged(ctx, formID, requester)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", ErrBadRequest)
	}
	if req.Version != form.Version {
		return nil, fmt.Errorf("form %s was modified concurrently: %w", formID, ErrConflict)
	}

	form.Title = req.Title
	form.Description = req.Description
	form.Questions = assignQuestionIDs(req.Questions)
	if req.Settings != nil {
		form.Settings = *req.Settings
	}
	if req.ChatConfig != nil {
		form.ChatConfig = *req.ChatConfig
	}
	form.UseNlpChat = req.UseNlpChat
	form.ConversationalDialogues = DeriveDialogues(form.Questions)

	if err := s.formRepo.Replace(ctx, form); err != nil {
		if err == repository.ErrVersionMismatch {
			return nil, fmt.Errorf("form %s was modified concurrently: %w", formID, ErrConflict)
		}
		return nil, err
	}

	s.invalidate(ctx, formID)
	return form, nil
}

// Publish sets the form live. Publishing an already-published form
// only refreshes the timestamp.
func (s *FormService) Publish(ctx context.Context, formID string, requester *model.UserClaims) (*model.Form, error) {
	form, err := s.loadManaged(ctx, formID, requester)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.formRepo.SetPublished(ctx, formID, now); err != nil {
		return nil, err
	}
	form.Status = model.FormPublished
	form.PublishedAt = &now

	s.invalidate(ctx, formID)
	return form, nil
}

// Delete hard-deletes the form
func (s *FormService) Delete(ctx context.Context, formID string, requester *model.UserClaims) error {
	if _, err := s.loadManaged(ctx, formID, requester); err != nil {
		return err
	}
	if err := s.formRepo.Delete(ctx, formID); err != nil {
		return err
	}
	s.invalidate(ctx, formID)
	return nil
}

// ListByCreator returns all of the requester's forms, any status
func (s *FormService) ListByCreator(ctx context.Context, creatorID string) ([]*model.Form, error) {
	return s.formRepo.GetByCreator(ctx, creatorID)
}

// loadManaged fetches a form and applies the write rule. Not-found is
// checked before the permission check.
func (s *FormService) loadManaged(ctx context.Context, formID string, requester *model.UserClaims) (*model.Form, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}
	if !CanManageForm(form, requester) {
		return nil, fmt.Errorf("form %s: %w", formID, ErrForbidden)
	}
	return form, nil
}

func (s *FormService) invalidate(ctx context.Context, formID string) {
	if err := s.formCache.Invalidate(ctx, formID); err != nil {
		log.Printf("form cache invalidation for %s failed: %v", formID, err)
	}
}

// DeriveDialogues maps each question to a conversational phrasing for
// the NLP service. Fixed templates keep LLM cost out of this path.
func DeriveDialogues(questions []model.Question) []string {
	dialogues := make([]string, len(questions))
	for i, q := range questions {
		switch q.Type {
		case model.QuestionText:
			dialogues[i] = "Could you please tell me your " + strings.ToLower(q.Question) + "?"
		case model.QuestionNumber:
			dialogues[i] = "What is your " + strings.ToLower(q.Question) + "?"
		case model.QuestionDate:
			dialogues[i] = "When is your " + strings.ToLower(q.Question) + "?"
		default:
			dialogues[i] = q.Question
		}
	}
	return dialogues
}

// assignQuestionIDs gives every question without an id a fresh uuid.
// Existing ids are kept so responses stay linked across edits.
func assignQuestionIDs(questions []model.Question) []model.Question {
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.New().String()
		}
	}
	return questions
}
