package services

import (
	"context"
	"io"
	"time"

	"research-repository-api/models"
)

// PaperRepository persists paper records. Lookups report absence with
// found=false rather than an error.
type PaperRepository interface {
	CreatePaper(ctx context.Context, paper *models.Paper) error
	ListPapers(ctx context.Context, filter PaperFilter) ([]models.Paper, error)
	FindPaper(ctx context.Context, id uint) (models.Paper, bool, error)
	// TransitionStatus moves a paper from one status to another in a single
	// conditional write. It reports false when the paper was not in status
	// from (or does not exist).
	TransitionStatus(ctx context.Context, id uint, from, to models.PaperStatus, at time.Time) (bool, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (models.User, bool, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
}

// FileStore keeps attachment bytes under generated names. Open must return
// an error matching fs.ErrNotExist when the name is unknown.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}
