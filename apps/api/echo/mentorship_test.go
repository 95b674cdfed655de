package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/mentorship"
)

func Test_mentorshipApi(t *testing.T) {
	env, srv := setup(t)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	tutorToken, learnerToken := getToken(t, env, tutor), getToken(t, env, learner)

	rec := do(srv, http.MethodPost, "/v1/mentorships", learnerToken,
		marchallObj(t, mentorship.NewMentorship{TutorID: tutor.ID, Challenge: "quadratic equations"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m mentorship.Mentorship
	unmarshal(t, rec, &m)
	assert.True(t, m.IsActive)
	require.Len(t, env.Email.SentMessages(), 1)

	closePath := "/v1/mentorships/" + m.ID + "/close"
	runHTTPTests(t, srv, []httpTest{
		{
			name: "duplicate request", method: http.MethodPost, path: "/v1/mentorships", token: learnerToken,
			body:     marchallObj(t, mentorship.NewMentorship{TutorID: tutor.ID, Challenge: "again"}),
			wantCode: http.StatusConflict,
		},
		{
			name: "tutor must be a tutor", method: http.MethodPost, path: "/v1/mentorships", token: learnerToken,
			body:     marchallObj(t, mentorship.NewMentorship{TutorID: learner.ID, Challenge: "x"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"tutor_id": mentorship.ErrNotTutor.Error()}),
		},
		{name: "learners cannot list", path: "/v1/mentorships", token: learnerToken, wantCode: http.StatusForbidden},
		{name: "learners cannot close", method: http.MethodPut, path: closePath, token: learnerToken, wantCode: http.StatusForbidden},
		{name: "close", method: http.MethodPut, path: closePath, token: tutorToken, wantCode: http.StatusOK},
		{name: "close twice", method: http.MethodPut, path: closePath, token: tutorToken, wantCode: http.StatusConflict},
	})

	rec = do(srv, http.MethodGet, "/v1/mentorships?active=true", tutorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var ms []mentorship.Mentorship
	unmarshal(t, rec, &ms)
	assert.Empty(t, ms)

	rec = do(srv, http.MethodGet, "/v1/mentorships", tutorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshal(t, rec, &ms)
	require.Len(t, ms, 1)
	assert.False(t, ms[0].IsActive)
}
