package media_test

import (
	"context"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/media"
	testutil "github.com/trezcool/educator/tests"
)

func TestService_UploadAndOpen(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)

	tests := []struct {
		name      string
		actor     access.Actor
		file      string
		wantKind  core.ErrorKind
		wantValid bool
	}{
		{name: "tutor", actor: tutor.Actor(), file: "intro.mp4"},
		{name: "learner", actor: learner.Actor(), file: "intro.mp4", wantKind: core.KindForbidden},
		{name: "bad extension", actor: tutor.Actor(), file: "intro.exe", wantValid: true},
		{name: "path traversal", actor: tutor.Actor(), file: "../intro.mp4", wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.Media.Upload(ctx, tt.actor, tt.file, strings.NewReader("video bytes"))
			switch {
			case tt.wantValid:
				_, ok := err.(*core.ValidationError)
				assert.True(t, ok, "error: %v", err)
			case tt.wantKind != core.KindUnknown:
				assert.Equal(t, tt.wantKind, core.KindOf(err))
			default:
				require.NoError(t, err)
			}
		})
	}

	rc, err := env.Media.Open(ctx, "intro.mp4")
	require.NoError(t, err)
	defer rc.Close()
	body, err := ioutil.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(body))

	_, err = env.Media.Open(ctx, "missing.mp4")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
	_, err = env.Media.Open(ctx, "../../etc/passwd")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "a.mp4", want: "video/mp4"},
		{name: "a.WEBM", want: "video/webm"},
		{name: "a.mov", want: "video/quicktime"},
		{name: "a.bin", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, media.ContentType(tt.name))
		})
	}
}
