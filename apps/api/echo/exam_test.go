package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/educator/apps/api/echo"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
)

func Test_examApi_gradingFlow(t *testing.T) {
	env, srv := setup(t)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	other := env.CreateUser(t, "other", access.RoleLearner)
	tutorToken, learnerToken := getToken(t, env, tutor), getToken(t, env, learner)

	// exam
	rec := do(srv, http.MethodPost, "/v1/exams", tutorToken, marchallObj(t, exam.NewExam{Name: " Algebra "}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ex exam.Exam
	unmarshal(t, rec, &ex)
	assert.Equal(t, "Algebra", ex.Name)
	assert.Equal(t, tutor.ID, ex.OwnerID)

	// questions
	rec = do(srv, http.MethodPost, "/v1/exams/"+ex.ID+"/questions", tutorToken, marchallObj(t, exam.NewQuestion{
		Text: "2 + 2 = ?", Marks: 5, MultiChoice: []string{"3", "4"}, Answer: "4",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mcq exam.Question
	unmarshal(t, rec, &mcq)
	assert.Equal(t, 1, mcq.Number)

	rec = do(srv, http.MethodPost, "/v1/exams/"+ex.ID+"/questions", tutorToken, marchallObj(t, exam.NewQuestion{
		Text: "Prove it.", Marks: 5,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var free exam.Question
	unmarshal(t, rec, &free)
	assert.Equal(t, 2, free.Number)

	rec = do(srv, http.MethodGet, "/v1/exams/"+ex.ID+"/questions", learnerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var questions []exam.Question
	unmarshal(t, rec, &questions)
	require.Len(t, questions, 2)
	assert.Empty(t, questions[0].Answer)

	// submissions
	rec = do(srv, http.MethodPost, "/v1/submissions", learnerToken, marchallObj(t, exam.NewSubmission{QuestionID: mcq.ID, Answer: "4"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var graded echoapi.GradedResponse
	unmarshal(t, rec, &graded)
	assert.Equal(t, exam.MarkAutoTick, graded.Submission.Mark)
	assert.Equal(t, 50, graded.Performance.Percentage)
	assert.Equal(t, "E/F", graded.Performance.Grade.LetterGrade)

	rec = do(srv, http.MethodPost, "/v1/submissions", learnerToken, marchallObj(t, exam.NewSubmission{QuestionID: free.ID, Answer: "because"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	unmarshal(t, rec, &graded)
	assert.Equal(t, exam.MarkUnmarked, graded.Submission.Mark)
	assert.Equal(t, 1, graded.Performance.UnmarkedCount)
	freeSub := graded.Submission

	// marking
	markPath := "/v1/submissions/" + freeSub.ID + "/mark"
	rec = do(srv, http.MethodPut, markPath, tutorToken, []byte(`{"mark": "TICK", "comment": "nice"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &graded)
	assert.Equal(t, exam.MarkTick, graded.Submission.Mark)
	assert.Equal(t, 100, graded.Performance.Percentage)
	assert.Equal(t, "A+", graded.Performance.Grade.LetterGrade)
	assert.Equal(t, 2, graded.Performance.TickCount)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "re-marking", method: http.MethodPut, path: markPath, token: tutorToken, body: []byte(`{"mark": "cross"}`),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: exam.ErrAlreadyMarked.Error(), Kind: "conflict"}),
		},
		{
			name: "learners cannot mark", method: http.MethodPut, path: markPath, token: learnerToken, body: []byte(`{"mark": "tick"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name: "unknown decision", method: http.MethodPut, path: markPath, token: tutorToken, body: []byte(`{"mark": "maybe"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate submission", method: http.MethodPost, path: "/v1/submissions", token: learnerToken,
			body:     marchallObj(t, exam.NewSubmission{QuestionID: mcq.ID, Answer: "3"}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: exam.ErrDuplicateSubmission.Error(), Kind: "conflict"}),
		},
		{
			name: "unknown submission", method: http.MethodPut, path: "/v1/submissions/nope/mark", token: tutorToken, body: []byte(`{"mark": "tick"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: exam.ErrSubmissionNotFound.Error(), Kind: "not_found"}),
		},
	})

	// performances
	rec = do(srv, http.MethodGet, "/v1/exams/"+ex.ID+"/performances/"+learner.ID, learnerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var perf exam.Performance
	unmarshal(t, rec, &perf)
	assert.Equal(t, 100, perf.Percentage)
	assert.Equal(t, 4.0, perf.Grade.FourPointZeroGrade)

	runHTTPTests(t, srv, []httpTest{
		{name: "other learner's performance", path: "/v1/exams/" + ex.ID + "/performances/" + learner.ID, token: getToken(t, env, other), wantCode: http.StatusForbidden},
		{name: "no performance yet", path: "/v1/exams/" + ex.ID + "/performances/" + other.ID, token: tutorToken, wantCode: http.StatusNotFound},
		{name: "learners cannot list performances", path: "/v1/exams/" + ex.ID + "/performances", token: learnerToken, wantCode: http.StatusForbidden},
	})

	rec = do(srv, http.MethodGet, "/v1/exams/"+ex.ID+"/performances", tutorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var perfs []exam.Performance
	unmarshal(t, rec, &perfs)
	assert.Len(t, perfs, 1)

	// an empty answer is scored, not rejected
	rec = do(srv, http.MethodPost, "/v1/submissions", getToken(t, env, other), []byte(`{"question_id": "`+mcq.ID+`", "answer": ""}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	unmarshal(t, rec, &graded)
	assert.Equal(t, exam.MarkAutoCross, graded.Submission.Mark)
	assert.Equal(t, 0, graded.Submission.MarksObtained)
	assert.Equal(t, 1, graded.Performance.CrossCount)
	assert.Equal(t, 0, graded.Performance.Percentage)
}

func Test_examApi_errors(t *testing.T) {
	env, srv := setup(t)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	staff := env.CreateUser(t, "staff", access.RoleStaff)
	tutorToken := getToken(t, env, tutor)
	ex := env.CreateExam(t, tutor, "Algebra")

	tests := []httpTest{
		{name: "auth required", path: "/v1/exams", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "learners cannot create exams", method: http.MethodPost, path: "/v1/exams", token: getToken(t, env, learner),
			body: marchallObj(t, exam.NewExam{Name: "Physics"}), wantCode: http.StatusForbidden,
		},
		{
			name: "missing name", method: http.MethodPost, path: "/v1/exams", token: tutorToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "bad tutorial name", method: http.MethodPost, path: "/v1/exams", token: tutorToken,
			body: marchallObj(t, exam.NewExam{Name: "Physics", VideoTutorialName: "../x.mp4"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate name", method: http.MethodPost, path: "/v1/exams", token: tutorToken,
			body:     marchallObj(t, exam.NewExam{Name: "Algebra"}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: exam.ErrExamNameExists.Error(), Kind: "conflict"}),
		},
		{
			name: "unknown exam", path: "/v1/exams/4a4ddc52-5d44-4b58-9e0d-57dbd4e3f7a1", token: tutorToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: exam.ErrExamNotFound.Error(), Kind: "not_found"}),
		},
		{
			name: "answer not among options", method: http.MethodPost, path: "/v1/exams/" + ex.ID + "/questions", token: tutorToken,
			body:     marchallObj(t, exam.NewQuestion{Text: "q", Marks: 1, MultiChoice: []string{"a", "b"}, Answer: "c"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "staff cannot add participants", method: http.MethodPost, path: "/v1/exams/" + ex.ID + "/participants", token: getToken(t, env, staff),
			body: marchallObj(t, exam.NewParticipant{UserID: learner.ID}), wantCode: http.StatusForbidden,
		},
		{
			name: "participant added", method: http.MethodPost, path: "/v1/exams/" + ex.ID + "/participants", token: tutorToken,
			body: marchallObj(t, exam.NewParticipant{UserID: learner.ID}), wantCode: http.StatusCreated,
		},
		{
			name: "participant exists", method: http.MethodPost, path: "/v1/exams/" + ex.ID + "/participants", token: tutorToken,
			body:     marchallObj(t, exam.NewParticipant{UserID: learner.ID}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: exam.ErrParticipantExists.Error(), Kind: "conflict"}),
		},
	}
	runHTTPTests(t, srv, tests)

	rec := do(srv, http.MethodGet, "/v1/exams?search=alg", tutorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var exams []exam.Exam
	unmarshal(t, rec, &exams)
	require.Len(t, exams, 1)
	assert.Equal(t, ex.ID, exams[0].ID)

	rec = do(srv, http.MethodGet, "/v1/exams/"+ex.ID+"/participants", tutorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var participants []exam.Participant
	unmarshal(t, rec, &participants)
	require.Len(t, participants, 1)
	assert.Equal(t, learner.ID, participants[0].UserID)
}

func Test_submissionApi_staleRecompute(t *testing.T) {
	env, srv := setup(t)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	ex := env.CreateExam(t, tutor, "Algebra")
	q1 := env.CreateQuestion(t, tutor, ex.ID, 5, "a", "a", "b")
	q2 := env.CreateQuestion(t, tutor, ex.ID, 5, "")
	learnerToken := getToken(t, env, learner)

	rec := do(srv, http.MethodPost, "/v1/submissions", learnerToken, marchallObj(t, exam.NewSubmission{QuestionID: q1.ID, Answer: "a"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, err := env.DB.Exec("UPDATE questions SET marks = 1 WHERE exam_id = ?", ex.ID)
	require.NoError(t, err)

	rec = do(srv, http.MethodPost, "/v1/submissions", learnerToken, marchallObj(t, exam.NewSubmission{QuestionID: q2.ID, Answer: "b"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var body httpErr
	unmarshal(t, rec, &body)
	assert.Equal(t, "invalid_state", body.Kind)
}
