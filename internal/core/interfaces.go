package core

import (
	"context"
	"io"

	"github.com/nvoskov/chatsplit/internal/models"
)

// DbClient defines all persistence operations the handlers need. It
// abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateRun(ctx context.Context, run *models.Run) error
	ListRunsByUser(ctx context.Context, userID string) ([]models.Run, error)
	UpdateRunStatus(ctx context.Context, id string, status string) error
	FinishRun(ctx context.Context, id string, status string, messages, chunks int, archiveURL string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage used
// to persist finished archives.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
