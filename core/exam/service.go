package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/user"
)

var (
	// errors
	ErrExamNotFound          = core.NewNotFoundError("exam not found")
	ErrQuestionNotFound      = core.NewNotFoundError("question not found")
	ErrSubmissionNotFound    = core.NewNotFoundError("submission not found")
	ErrPerformanceNotFound   = core.NewNotFoundError("performance not found")
	ErrExamNameExists        = core.NewConflictError("an exam with this name already exists")
	ErrQuestionNumberExists  = core.NewConflictError("a question with this number already exists in the exam")
	ErrParticipantExists     = core.NewConflictError("user is already a participant of this exam")
	ErrDuplicateSubmission   = core.NewConflictError("a submission for this question already exists")
	ErrNotParticipant        = core.NewForbiddenError("only registered participants can submit to this exam")
	ErrOthersPerformance     = core.NewForbiddenError("learners can only view their own performance")
	errParticipantNotLearner = errors.New("only learners can participate in exams")
)

const staleBatchSize = 100

type (
	ExamRepository interface {
		CreateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		GetExam(ctx context.Context, id string, exec ...core.DBExecutor) (Exam, error)
		ExamNameExists(ctx context.Context, name string, exec ...core.DBExecutor) (bool, error)
		QueryExams(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Exam, error)

		AddParticipant(ctx context.Context, p Participant, exec ...core.DBExecutor) (Participant, error)
		IsParticipant(ctx context.Context, examID, userID string, exec ...core.DBExecutor) (bool, error)
		CountParticipants(ctx context.Context, examID string, exec ...core.DBExecutor) (int, error)
		QueryParticipants(ctx context.Context, examID string, exec ...core.DBExecutor) ([]Participant, error)
	}

	QuestionRepository interface {
		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (Question, error)
		// MaxQuestionNumber returns 0 for an exam without questions.
		MaxQuestionNumber(ctx context.Context, examID string, exec ...core.DBExecutor) (int, error)
		QuestionNumberExists(ctx context.Context, examID string, number int, exec ...core.DBExecutor) (bool, error)
		// QueryQuestions returns the questions of an exam ordered by number.
		QueryQuestions(ctx context.Context, examID string, exec ...core.DBExecutor) ([]Question, error)
	}

	SubmissionRepository interface {
		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		SubmissionExists(ctx context.Context, userID, questionID string, exec ...core.DBExecutor) (bool, error)
		// UpdateSubmissionMark must only update a submission that is not manually marked yet,
		// returning ErrAlreadyMarked otherwise.
		UpdateSubmissionMark(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		// QueryUserSubmissions returns all submissions of a user to the questions of an exam.
		QueryUserSubmissions(ctx context.Context, userID, examID string, exec ...core.DBExecutor) ([]Submission, error)
		// QuerySubmitterIDs returns the distinct users who submitted to the questions of an exam.
		QuerySubmitterIDs(ctx context.Context, examID string, exec ...core.DBExecutor) ([]string, error)
	}

	PerformanceRepository interface {
		// UpsertPerformance inserts or overwrites the Performance of (p.UserID, p.ExamID) in a single statement.
		UpsertPerformance(ctx context.Context, p Performance, exec ...core.DBExecutor) (Performance, error)
		GetPerformance(ctx context.Context, userID, examID string, exec ...core.DBExecutor) (Performance, error)
		QueryPerformances(ctx context.Context, examID string, exec ...core.DBExecutor) ([]Performance, error)

		FlagStalePerformance(ctx context.Context, sp StalePerformance, exec ...core.DBExecutor) error
		ClearStalePerformance(ctx context.Context, userID, examID string, exec ...core.DBExecutor) error
		QueryStalePerformances(ctx context.Context, limit int, exec ...core.DBExecutor) ([]StalePerformance, error)
	}

	GradeRepository interface {
		QueryGrades(ctx context.Context, exec ...core.DBExecutor) ([]Grade, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error)
	}

	Repositories struct {
		Exams        ExamRepository
		Questions    QuestionRepository
		Submissions  SubmissionRepository
		Performances PerformanceRepository
	}

	Service struct {
		db     core.DB
		repos  Repositories
		users  UserGetter
		gate   *access.Gate
		grades *GradeTable
		logger core.Logger
	}
)

func NewService(
	db core.DB,
	repos Repositories,
	users UserGetter,
	gate *access.Gate,
	grades *GradeTable,
	logger core.Logger,
) *Service {
	return &Service{
		db:     db,
		repos:  repos,
		users:  users,
		gate:   gate,
		grades: grades,
		logger: logger,
	}
}

// LoadGradeTable reads the grading scale from the store and validates it.
func LoadGradeTable(ctx context.Context, repo GradeRepository) (*GradeTable, error) {
	grades, err := repo.QueryGrades(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	gt, err := NewGradeTable(grades)
	return gt, errors.Wrap(err, "validating grades")
}

// Exams

func (svc *Service) CreateExam(ctx context.Context, actor access.Actor, ne NewExam) (Exam, error) {
	if err := svc.gate.AuthorizeActor(actor, access.CreateExam); err != nil {
		return Exam{}, err
	}

	exists, err := svc.repos.Exams.ExamNameExists(ctx, ne.Name)
	if err != nil {
		return Exam{}, errors.Wrap(err, "checking exam name")
	}
	if exists {
		return Exam{}, ErrExamNameExists
	}

	now := time.Now().UTC()
	ex, err := svc.repos.Exams.CreateExam(ctx, Exam{
		OwnerID:           actor.ID,
		Name:              ne.Name,
		VideoTutorialName: ne.VideoTutorialName,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	return ex, errors.Wrap(err, "creating exam")
}

func (svc *Service) GetExam(ctx context.Context, id string) (Exam, error) {
	return svc.repos.Exams.GetExam(ctx, id)
}

func (svc *Service) QueryExams(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Exam, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	return svc.repos.Exams.QueryExams(ctx, filter, ordering)
}

// Participants

func (svc *Service) AddParticipant(ctx context.Context, actor access.Actor, examID string, np NewParticipant) (Participant, error) {
	if err := svc.gate.AuthorizeActor(actor, access.AddParticipant); err != nil {
		return Participant{}, err
	}

	var p Participant
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repos.Exams.GetExam(ctx, examID, tx); err != nil {
			return err
		}
		usr, err := svc.users.GetByID(ctx, np.UserID, tx)
		if err != nil {
			return err
		}
		if !usr.IsLearner() {
			return core.NewValidationError(errParticipantNotLearner, core.FieldError{Field: "user_id", Error: errParticipantNotLearner.Error()})
		}
		ok, err := svc.repos.Exams.IsParticipant(ctx, examID, usr.ID, tx)
		if err != nil {
			return errors.Wrap(err, "checking participant")
		}
		if ok {
			return ErrParticipantExists
		}
		p, err = svc.repos.Exams.AddParticipant(ctx, Participant{ExamID: examID, UserID: usr.ID, CreatedAt: time.Now().UTC()}, tx)
		return errors.Wrap(err, "adding participant")
	})
	return p, err
}

func (svc *Service) ListParticipants(ctx context.Context, examID string) ([]Participant, error) {
	if _, err := svc.repos.Exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return svc.repos.Exams.QueryParticipants(ctx, examID)
}

// checkParticipant allows anyone when the exam has no participant list.
func (svc *Service) checkParticipant(ctx context.Context, examID, userID string, tx core.DBExecutor) error {
	count, err := svc.repos.Exams.CountParticipants(ctx, examID, tx)
	if err != nil {
		return errors.Wrap(err, "counting participants")
	}
	if count == 0 {
		return nil
	}
	ok, err := svc.repos.Exams.IsParticipant(ctx, examID, userID, tx)
	if err != nil {
		return errors.Wrap(err, "checking participant")
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// Questions

func (svc *Service) CreateQuestion(ctx context.Context, actor access.Actor, nq NewQuestion) (Question, error) {
	if err := svc.gate.AuthorizeActor(actor, access.CreateQuestion); err != nil {
		return Question{}, err
	}

	var q Question
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repos.Exams.GetExam(ctx, nq.ExamID, tx); err != nil {
			return err
		}

		var number int
		if nq.Number != nil {
			number = *nq.Number
			exists, err := svc.repos.Questions.QuestionNumberExists(ctx, nq.ExamID, number, tx)
			if err != nil {
				return errors.Wrap(err, "checking question number")
			}
			if exists {
				return ErrQuestionNumberExists
			}
		} else {
			last, err := svc.repos.Questions.MaxQuestionNumber(ctx, nq.ExamID, tx)
			if err != nil {
				return errors.Wrap(err, "finding last question number")
			}
			number = last + 1
		}

		now := time.Now().UTC()
		var err error
		q, err = svc.repos.Questions.CreateQuestion(ctx, Question{
			ExamID:      nq.ExamID,
			Number:      number,
			Text:        nq.Text,
			Marks:       nq.Marks,
			MultiChoice: nq.MultiChoice,
			Answer:      nq.Answer,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, tx)
		return errors.Wrap(err, "creating question")
	})
	return q, err
}

// ListQuestions hides the answers from learners.
func (svc *Service) ListQuestions(ctx context.Context, actor access.Actor, examID string) ([]Question, error) {
	if _, err := svc.repos.Exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	questions, err := svc.repos.Questions.QueryQuestions(ctx, examID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	if actor.Is(access.RoleLearner) {
		for i, q := range questions {
			questions[i] = q.WithoutAnswer()
		}
	}
	return questions, nil
}

// Submissions

// CreateSubmission scores the learner's answer and recomputes their exam performance in one transaction.
// When the recomputation fails on an invalid state the submission is kept, the performance is flagged
// as stale, and the recomputation error is returned.
func (svc *Service) CreateSubmission(ctx context.Context, actor access.Actor, ns NewSubmission) (Submission, Performance, error) {
	if err := svc.gate.AuthorizeActor(actor, access.CreateSubmission); err != nil {
		return Submission{}, Performance{}, err
	}

	var (
		sub          Submission
		perf         Performance
		recomputeErr error
	)
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		q, err := svc.repos.Questions.GetQuestion(ctx, ns.QuestionID, tx)
		if err != nil {
			return err
		}
		if err = svc.checkParticipant(ctx, q.ExamID, actor.ID, tx); err != nil {
			return err
		}
		exists, err := svc.repos.Submissions.SubmissionExists(ctx, actor.ID, q.ID, tx)
		if err != nil {
			return errors.Wrap(err, "checking submission")
		}
		if exists {
			return ErrDuplicateSubmission
		}

		mark, marks := Score(q, ns.Answer)
		now := time.Now().UTC()
		sub, err = svc.repos.Submissions.CreateSubmission(ctx, Submission{
			UserID:        actor.ID,
			QuestionID:    q.ID,
			ExamID:        q.ExamID,
			Answer:        ns.Answer,
			Mark:          mark,
			MarksObtained: marks,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, tx)
		if err != nil {
			return errors.Wrap(err, "creating submission")
		}

		perf, recomputeErr = svc.recompute(ctx, actor.ID, q.ExamID, tx)
		return svc.flagIfStale(ctx, actor.ID, q.ExamID, recomputeErr, tx)
	})
	if err != nil {
		return Submission{}, Performance{}, err
	}
	return sub, perf, recomputeErr
}

// MarkSubmission applies a tutor's decision and recomputes the learner's exam performance in one transaction.
func (svc *Service) MarkSubmission(ctx context.Context, actor access.Actor, id string, mr MarkRequest) (Submission, Performance, error) {
	if err := svc.gate.AuthorizeActor(actor, access.MarkSubmission); err != nil {
		return Submission{}, Performance{}, err
	}

	var (
		sub          Submission
		perf         Performance
		recomputeErr error
	)
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		sub, err = svc.repos.Submissions.GetSubmission(ctx, id, tx)
		if err != nil {
			return err
		}
		q, err := svc.repos.Questions.GetQuestion(ctx, sub.QuestionID, tx)
		if err != nil {
			return err
		}

		mark, marks, err := ApplyMark(sub, q, mr.Decision, mr.OverrideMarks)
		if err != nil {
			return err
		}
		sub.Mark = mark
		sub.MarksObtained = marks
		sub.Comment = mr.Comment
		sub.MarkedBy = actor.ID
		sub.UpdatedAt = time.Now().UTC()
		if sub, err = svc.repos.Submissions.UpdateSubmissionMark(ctx, sub, tx); err != nil {
			return err
		}

		perf, recomputeErr = svc.recompute(ctx, sub.UserID, q.ExamID, tx)
		return svc.flagIfStale(ctx, sub.UserID, q.ExamID, recomputeErr, tx)
	})
	if err != nil {
		return Submission{}, Performance{}, err
	}
	return sub, perf, recomputeErr
}

// Performances

func (svc *Service) GetPerformance(ctx context.Context, actor access.Actor, userID, examID string) (Performance, error) {
	if err := svc.gate.AuthorizeActor(actor, access.GetExamPerformance); err != nil {
		return Performance{}, err
	}
	if actor.Is(access.RoleLearner) && actor.ID != userID {
		return Performance{}, ErrOthersPerformance
	}
	if _, err := svc.repos.Exams.GetExam(ctx, examID); err != nil {
		return Performance{}, err
	}
	return svc.repos.Performances.GetPerformance(ctx, userID, examID)
}

func (svc *Service) ListPerformances(ctx context.Context, actor access.Actor, examID string) ([]Performance, error) {
	if err := svc.gate.AuthorizeActor(actor, access.GetExamPerformance); err != nil {
		return nil, err
	}
	if actor.Is(access.RoleLearner) {
		return nil, ErrOthersPerformance
	}
	if _, err := svc.repos.Exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return svc.repos.Performances.QueryPerformances(ctx, examID)
}

// Recompute rebuilds the Performance of (userID, examID) from the full submission set.
// It is idempotent and safe to call at any time.
func (svc *Service) Recompute(ctx context.Context, userID, examID string) (Performance, error) {
	var (
		perf         Performance
		recomputeErr error
	)
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repos.Exams.GetExam(ctx, examID, tx); err != nil {
			return err
		}
		perf, recomputeErr = svc.recompute(ctx, userID, examID, tx)
		return svc.flagIfStale(ctx, userID, examID, recomputeErr, tx)
	})
	if err != nil {
		return Performance{}, err
	}
	return perf, recomputeErr
}

// RecomputeExam recomputes the performance of every learner who submitted to examID.
func (svc *Service) RecomputeExam(ctx context.Context, examID string) (int, error) {
	if _, err := svc.repos.Exams.GetExam(ctx, examID); err != nil {
		return 0, err
	}
	userIDs, err := svc.repos.Submissions.QuerySubmitterIDs(ctx, examID)
	if err != nil {
		return 0, errors.Wrap(err, "querying submitters")
	}
	var done int
	for _, userID := range userIDs {
		if _, err := svc.Recompute(ctx, userID, examID); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// RetryStale recomputes the flagged performances and returns how many were fixed.
// Pairs that still fail stay flagged.
func (svc *Service) RetryStale(ctx context.Context) (int, error) {
	stale, err := svc.repos.Performances.QueryStalePerformances(ctx, staleBatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "querying stale performances")
	}

	var fixed int
	for _, sp := range stale {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		if _, err := svc.Recompute(ctx, sp.UserID, sp.ExamID); err != nil {
			svc.logger.Warn(fmt.Sprintf("retrying stale performance (user %s, exam %s): %v", sp.UserID, sp.ExamID, err), err)
			continue
		}
		fixed++
	}
	return fixed, nil
}

// recompute must run inside the caller's transaction.
// The stored row is left untouched when nothing changed, so repeated calls yield identical state.
func (svc *Service) recompute(ctx context.Context, userID, examID string, tx core.DBExecutor) (Performance, error) {
	questions, err := svc.repos.Questions.QueryQuestions(ctx, examID, tx)
	if err != nil {
		return Performance{}, errors.Wrap(err, "querying questions")
	}
	subs, err := svc.repos.Submissions.QueryUserSubmissions(ctx, userID, examID, tx)
	if err != nil {
		return Performance{}, errors.Wrap(err, "querying submissions")
	}

	perf, err := Aggregate(questions, subs, svc.grades)
	if err != nil {
		return Performance{}, err
	}
	perf.UserID = userID
	perf.ExamID = examID

	current, err := svc.repos.Performances.GetPerformance(ctx, userID, examID, tx)
	switch {
	case err == nil:
		if perf.SameScore(current) {
			return current, svc.clearStale(ctx, userID, examID, tx)
		}
	case !errors.Is(err, ErrPerformanceNotFound):
		return Performance{}, errors.Wrap(err, "getting performance")
	}

	perf.UpdatedAt = time.Now().UTC()
	if perf, err = svc.repos.Performances.UpsertPerformance(ctx, perf, tx); err != nil {
		return Performance{}, errors.Wrap(err, "upserting performance")
	}
	return perf, svc.clearStale(ctx, userID, examID, tx)
}

func (svc *Service) clearStale(ctx context.Context, userID, examID string, tx core.DBExecutor) error {
	return errors.Wrap(svc.repos.Performances.ClearStalePerformance(ctx, userID, examID, tx), "clearing stale performance")
}

// flagIfStale turns an invalid state recomputation failure into a stale flag so the transaction can commit.
// Any other error is returned to roll the transaction back.
func (svc *Service) flagIfStale(ctx context.Context, userID, examID string, recomputeErr error, tx core.DBExecutor) error {
	if recomputeErr == nil {
		return nil
	}
	if core.KindOf(recomputeErr) != core.KindInvalidState {
		return recomputeErr
	}

	svc.logger.Warn(fmt.Sprintf("flagging stale performance (user %s, exam %s): %v", userID, examID, recomputeErr))
	err := svc.repos.Performances.FlagStalePerformance(ctx, StalePerformance{
		UserID:    userID,
		ExamID:    examID,
		Reason:    recomputeErr.Error(),
		FlaggedAt: time.Now().UTC(),
	}, tx)
	return errors.Wrap(err, "flagging stale performance")
}
