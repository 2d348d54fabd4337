package models

import (
	"time"
)

// User represents an authenticated user of the service.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Message is one decoded message occurrence pulled out of an export
// stream: the flattened body text plus whatever optional metrics the
// surrounding bytes yielded. Pointer fields are nil when the metric was
// not found; exporters render those as an explicit "not available"
// marker so every row in a run keeps the same shape.
type Message struct {
	ID             int64   `json:"message_id"`
	Text           string  `json:"text_content"`
	Timestamp      string  `json:"timestamp"`
	SenderID       string  `json:"sender_id"`
	SenderName     string  `json:"sender_name"`
	ReplyToID      *int64  `json:"reply_to_id"`
	ViewsCount     *uint64 `json:"views_count"`
	ReactionsCount *uint64 `json:"reactions_count"`
}

// WordCount returns the number of whitespace-delimited tokens in the
// message body. Chunk sealing is driven by this count.
func (m *Message) WordCount() int {
	n := 0
	inWord := false
	for _, r := range m.Text {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			inWord = false
		default:
			if !inWord {
				n++
			}
			inWord = true
		}
	}
	return n
}

// Run statuses.
const (
	RunStatusProcessing = "processing"
	RunStatusComplete   = "complete"
	RunStatusFailed     = "failed"
)

// Run represents one split job: who submitted it, what options were in
// effect, and how it ended.
type Run struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	Format       string    `db:"format" json:"format"`
	WordLimit    int       `db:"word_limit" json:"word_limit"`
	Overlap      int       `db:"overlap" json:"overlap"`
	Status       string    `db:"status" json:"status"`
	MessageCount int       `db:"message_count" json:"message_count"`
	ChunkCount   int       `db:"chunk_count" json:"chunk_count"`
	ArchiveURL   string    `db:"archive_url" json:"archive_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
