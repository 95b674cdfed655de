// Package media stores the video tutorials attached to exams.
package media

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
)

var (
	// errors
	ErrInvalidName = errors.New("video names may only contain letters, digits, '-', '_' and '.' and must end in .mp4, .webm or .mov")
	ErrNotFound    = core.NewNotFoundError("video not found")
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

type Service struct {
	store  core.FileStore
	gate   *access.Gate
	logger core.Logger
}

func NewService(store core.FileStore, gate *access.Gate, logger core.Logger) *Service {
	return &Service{store: store, gate: gate, logger: logger}
}

// Upload stores a video tutorial under name, replacing any previous upload.
func (svc *Service) Upload(ctx context.Context, actor access.Actor, name string, r io.Reader) error {
	if err := svc.gate.AuthorizeActor(actor, access.UploadFile); err != nil {
		return err
	}
	name = core.CleanString(name)
	if !exam.IsValidVideoName(name) {
		return core.NewValidationError(ErrInvalidName, core.FieldError{Field: "tutorial_name", Error: ErrInvalidName.Error()})
	}
	return svc.store.Store(ctx, name, r)
}

// Open streams the video back. The caller must close it.
func (svc *Service) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !exam.IsValidVideoName(name) {
		return nil, ErrNotFound
	}
	return svc.store.Retrieve(ctx, name)
}

// ContentType returns the MIME type served for name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
