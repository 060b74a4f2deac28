package model

import "time"

// FormStatus is the publication state of a form
type FormStatus string

const (
	FormDraft     FormStatus = "draft"
	FormPublished FormStatus = "published"
	// FormArchived exists in the schema but no operation sets it
	FormArchived FormStatus = "archived"
)

// QuestionType defines the kind of answer a question collects
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionSingleChoice   QuestionType = "single-choice"
	QuestionDate           QuestionType = "date"
	QuestionFile           QuestionType = "file"
	QuestionNumber         QuestionType = "number"
)

// Dependency makes a question conditional on another question's answer
type Dependency struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Condition  interface{} `json:"condition" bson:"condition"`
}

// Question is embedded in a Form. ID stays stable across edits so
// responses can keep referencing it.
type Question struct {
	ID       string       `json:"id" bson:"id"`
	Type     QuestionType `json:"type" bson:"type"`
	Question string       `json:"question" bson:"question"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty"`
	Required bool         `json:"required" bson:"required"`
	// Validation and Dependencies are declared policy hooks with no
	// enforcing logic on the server
	Validation   map[string]interface{} `json:"validation,omitempty" bson:"validation,omitempty"`
	Dependencies []Dependency           `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
}

// FormSettings configures who may see and submit a form
type FormSettings struct {
	AllowAnonymous         bool `json:"allowAnonymous" bson:"allowAnonymous"`
	RequireLogin           bool `json:"requireLogin" bson:"requireLogin"`
	AllowMultipleResponses bool `json:"allowMultipleResponses" bson:"allowMultipleResponses"`
}

// ChatConfig configures the conversational filling mode
type ChatConfig struct {
	Enabled     bool   `json:"enabled" bson:"enabled"`
	Personality string `json:"personality" bson:"personality"`
}

// Form is a question set owned by exactly one creator
type Form struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Creator     string       `json:"creator" bson:"creator"`
	Questions   []Question   `json:"questions" bson:"questions"`
	Settings    FormSettings `json:"settings" bson:"settings"`
	ChatConfig  ChatConfig   `json:"chatConfig" bson:"chatConfig"`
	Status      FormStatus   `json:"status" bson:"status"`
	PublishedAt *time.Time   `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`

	// ConversationalDialogues holds one derived phrasing per question,
	// in question order. Recomputed on every edit.
	ConversationalDialogues []string `json:"conversationalDialogues" bson:"conversationalDialogues"`
	UseNlpChat              bool     `json:"useNlpChat" bson:"useNlpChat"`

	// Version is the optimistic-concurrency counter checked on update
	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// QuestionByPrompt returns the question whose prompt text equals label,
// case-sensitively, or nil.
func (f *Form) QuestionByPrompt(label string) *Question {
	for i := range f.Questions {
		if f.Questions[i].Question == label {
			return &f.Questions[i]
		}
	}
	return nil
}

// Labelset returns the ordered question prompts, skipping empty ones
func (f *Form) Labelset() []string {
	labels := make([]string, 0, len(f.Questions))
	for _, q := range f.Questions {
		if q.Question != "" {
			labels = append(labels, q.Question)
		}
	}
	return labels
}
