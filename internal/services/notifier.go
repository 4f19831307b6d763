package services

import "context"

// UnlockLinkMessage is the email that carries a single-use unlock link.
type UnlockLinkMessage struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Organization  string `json:"organization,omitempty"`
	Token         string `json:"-"`
	ResourceID    string `json:"resourceId"`
	ResourceTitle string `json:"resourceTitle"`
	Link          string `json:"link"`
	Locale        string `json:"locale,omitempty"`
}

// AnswerLine is one question with its human-readable answer.
type AnswerLine struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SubmissionMessage describes a stored response for confirmation and notice emails.
type SubmissionMessage struct {
	To                 string       `json:"to"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	Organization       string       `json:"organization,omitempty"`
	QuestionnaireSlug  string       `json:"questionnaireSlug"`
	QuestionnaireTitle string       `json:"questionnaireTitle"`
	ResponseID         string       `json:"responseId"`
	Lines              []AnswerLine `json:"answers"`
	Locale             string       `json:"locale,omitempty"`
}

// NotificationGateway delivers outbound email. Implementations live in package notify.
type NotificationGateway interface {
	SendUnlockLink(ctx context.Context, msg UnlockLinkMessage) error
	SendSubmissionConfirmation(ctx context.Context, msg SubmissionMessage) error
	SendSubmissionNotice(ctx context.Context, msg SubmissionMessage) error
}
