package model

import "time"

// ResponseStatus is the lifecycle state of a response
type ResponseStatus string

const (
	ResponseDraft      ResponseStatus = "draft"
	ResponseInProgress ResponseStatus = "in-progress"
	ResponseSubmitted  ResponseStatus = "submitted"
	ResponseCompleted  ResponseStatus = "completed"
)

// Answer pairs a question id with an arbitrary scalar or list value
type Answer struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Answer     interface{} `json:"answer" bson:"answer"`
}

// ConversationEntry is one role-tagged utterance of an NLP chat session
type ConversationEntry struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Response is one respondent's answer set for one form. SubmittedBy is
// empty for anonymous and callback submissions.
type Response struct {
	ID                  string              `json:"id" bson:"_id,omitempty"`
	FormID              string              `json:"formId" bson:"formId"`
	Answers             []Answer            `json:"answers" bson:"answers"`
	SubmittedBy         string              `json:"submittedBy,omitempty" bson:"submittedBy,omitempty"`
	SubmittedAt         time.Time           `json:"submittedAt" bson:"submittedAt"`
	Status              ResponseStatus      `json:"status" bson:"status"`
	ConversationHistory []ConversationEntry `json:"conversationHistory,omitempty" bson:"conversationHistory,omitempty"`
}

// AnswerFor returns the answer value for a question id, or nil
func (r *Response) AnswerFor(questionID string) (interface{}, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.Answer, true
		}
	}
	return nil, false
}
