// Package files implements core.FileStore on the local filesystem and on Aliyun OSS.
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
)

var (
	ErrNotFound    = core.NewNotFoundError("file not found")
	errOutsideRoot = errors.New("file name escapes the storage root")
)

// FSStore keeps files flat under a root directory.
type FSStore struct {
	root string
}

var _ core.FileStore = (*FSStore)(nil) // interface compliance check

func NewFSStore(root string) (*FSStore, error) {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(root, "root")).Check(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating files root")
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(name string) (string, error) {
	p := filepath.Join(s.root, filepath.Clean("/"+name))
	if name == "" || !strings.HasPrefix(p, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", errOutsideRoot
	}
	return p, nil
}

// Store writes to a temporary file first so readers never see partial uploads.
func (s *FSStore) Store(ctx context.Context, name string, r io.Reader) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return core.NewGatewayError(err, "storing %s", name)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		_ = tmp.Close()
		return core.NewGatewayError(err, "storing %s", name)
	}
	if err = tmp.Close(); err != nil {
		return core.NewGatewayError(err, "storing %s", name)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return core.NewGatewayError(err, "storing %s", name)
	}
	return nil
}

func (s *FSStore) Retrieve(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, core.NewGatewayError(err, "retrieving %s", name)
	}
	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
