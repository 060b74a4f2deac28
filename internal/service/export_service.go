package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"formbridge/internal/model"
	"formbridge/internal/repository"
)

// ExportService projects stored responses into CSV. Nothing is
// persisted; the artifact is written straight to the caller.
type ExportService struct {
	formRepo     repository.FormRepo
	responseRepo repository.ResponseRepo
	userRepo     repository.UserRepo
}

// NewExportService creates a new export service
func NewExportService(formRepo repository.FormRepo, responseRepo repository.ResponseRepo, userRepo repository.UserRepo) *ExportService {
	return &ExportService{
		formRepo:     formRepo,
		responseRepo: responseRepo,
		userRepo:     userRepo,
	}
}

// ExportCSV writes one header row plus one row per response to w.
// Columns are the fixed submitter/date/status triple followed by one
// column per current form question. Permissions match the response
// list rule: creator or admin only.
func (s *ExportService) ExportCSV(ctx context.Context, formID string, requester *model.UserClaims, w io.Writer) error {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return err
	}
	if form == nil {
		return fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}
	if !CanManageForm(form, requester) {
		return fmt.Errorf("export of form %s: %w", formID, ErrForbidden)
	}

	responses, err := s.responseRepo.GetByForm(ctx, formID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	header := []string{"Submitted By", "Submission Date", "Status"}
	for _, q := range form.Questions {
		header = append(header, q.Question)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	names := map[string]string{}
	for _, response := range responses {
		row := []string{
			s.submitterName(ctx, response.SubmittedBy, names),
			response.SubmittedAt.Format(time.RFC3339),
			string(response.Status),
		}
		for _, q := range form.Questions {
			row = append(row, formatAnswer(response, q.ID))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// submitterName resolves a display name, caching lookups across rows.
// Anonymous submissions yield an empty field.
func (s *ExportService) submitterName(ctx context.Context, submitterID string, names map[string]string) string {
	if submitterID == "" {
		return ""
	}
	if name, ok := names[submitterID]; ok {
		return name
	}
	user, err := s.userRepo.GetByID(ctx, submitterID)
	if err != nil || user == nil {
		if err != nil {
			log.Printf("export: resolving submitter %s failed: %v", submitterID, err)
		}
		names[submitterID] = ""
		return ""
	}
	names[submitterID] = user.Name
	return user.Name
}

// formatAnswer renders the answer for a question: lists joined with
// ", ", scalars via fmt, absent answers as an empty cell. List answers
// decode as primitive.A when the response comes out of MongoDB and as
// []interface{} when it comes straight off the wire.
func formatAnswer(response *model.Response, questionID string) string {
	value, ok := response.AnswerFor(questionID)
	if !ok || value == nil {
		return ""
	}
	switch list := value.(type) {
	case []interface{}:
		return joinList(list)
	case primitive.A:
		return joinList(list)
	}
	return fmt.Sprintf("%v", value)
}

func joinList(list []interface{}) string {
	out := ""
	for i, item := range list {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%v", item)
	}
	return out
}
