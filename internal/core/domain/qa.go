package domain

import "time"

type QAStatus string

const (
	QAPending  QAStatus = "pending"
	QAAnswered QAStatus = "answered"
	QAError    QAStatus = "error"
)

// QAEntry is one question/answer exchange in a document's session log. The
// log is append-only: entries are never edited once answered, and answers
// land in completion order, so clients must key off ID rather than position.
type QAEntry struct {
	ID           string     `json:"qa_id"`
	DocumentID   string     `json:"document_id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer,omitempty"`
	Status       QAStatus   `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	AskedAt      time.Time  `json:"asked_at"`
	AnsweredAt   *time.Time `json:"answered_at,omitempty"`
}
