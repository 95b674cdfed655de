package files

import (
	"context"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
)

const (
	ossNoSuchKey = "NoSuchKey"
	ossPrefix    = "videos"
)

// OSSStore keeps files in an Aliyun OSS bucket under the "videos/" prefix.
type OSSStore struct {
	bucket *oss.Bucket
	prefix string
}

var _ core.FileStore = (*OSSStore)(nil) // interface compliance check

func NewOSSStore(conf core.FilesConfig) (*OSSStore, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.OSSEndpoint, "OSSEndpoint"),
		vala.StringNotEmpty(conf.OSSAccessKey, "OSSAccessKey"),
		vala.StringNotEmpty(conf.OSSAccessSecret, "OSSAccessSecret"),
		vala.StringNotEmpty(conf.OSSBucket, "OSSBucket"),
	).Check()
	if err != nil {
		return nil, err
	}

	client, err := oss.New(conf.OSSEndpoint, conf.OSSAccessKey, conf.OSSAccessSecret)
	if err != nil {
		return nil, errors.Wrap(err, "creating OSS client")
	}
	bucket, err := client.Bucket(conf.OSSBucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening OSS bucket")
	}
	return &OSSStore{bucket: bucket, prefix: ossPrefix}, nil
}

func (s *OSSStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *OSSStore) Store(ctx context.Context, name string, r io.Reader) error {
	if err := s.bucket.PutObject(s.key(name), readerWithContext(ctx, r)); err != nil {
		return core.NewGatewayError(err, "storing %s", name)
	}
	return nil
}

func (s *OSSStore) Retrieve(_ context.Context, name string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(s.key(name))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == ossNoSuchKey {
			return nil, ErrNotFound
		}
		return nil, core.NewGatewayError(err, "retrieving %s", name)
	}
	return body, nil
}

// New returns the store selected by conf.Backend.
func New(conf core.FilesConfig) (core.FileStore, error) {
	switch conf.Backend {
	case "oss":
		return NewOSSStore(conf)
	case "fs", "":
		return NewFSStore(conf.Root)
	default:
		return nil, errors.Errorf("unsupported files backend %q", conf.Backend)
	}
}
