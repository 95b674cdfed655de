package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/exam"
)

const submissionColumns = "id, user_id, question_id, exam_id, answer, mark, marks_obtained, comment, marked_by, created_at, updated_at"

type submissionRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	QuestionID    string      `db:"question_id"`
	ExamID        string      `db:"exam_id"`
	Answer        string      `db:"answer"`
	Mark          string      `db:"mark"`
	MarksObtained int         `db:"marks_obtained"`
	Comment       null.String `db:"comment"`
	MarkedBy      null.String `db:"marked_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func newSubmissionRow(s exam.Submission) submissionRow {
	return submissionRow{
		ID:            s.ID,
		UserID:        s.UserID,
		QuestionID:    s.QuestionID,
		ExamID:        s.ExamID,
		Answer:        s.Answer,
		Mark:          string(s.Mark),
		MarksObtained: s.MarksObtained,
		Comment:       null.NewString(s.Comment, s.Comment != ""),
		MarkedBy:      null.NewString(s.MarkedBy, s.MarkedBy != ""),
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (r submissionRow) submission() exam.Submission {
	return exam.Submission{
		ID:            r.ID,
		UserID:        r.UserID,
		QuestionID:    r.QuestionID,
		ExamID:        r.ExamID,
		Answer:        r.Answer,
		Mark:          exam.Mark(r.Mark),
		MarksObtained: r.MarksObtained,
		Comment:       r.Comment.String,
		MarkedBy:      r.MarkedBy.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type submissionRepository struct {
	repository
}

var _ exam.SubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) *submissionRepository {
	return &submissionRepository{repository{exec: exec}}
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, s exam.Submission, exec ...core.DBExecutor) (exam.Submission, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO submissions (` + submissionColumns + `)
		VALUES (:id, :user_id, :question_id, :exam_id, :answer, :mark, :marks_obtained, :comment, :marked_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newSubmissionRow(s)); err != nil {
		return exam.Submission{}, trapErr(err, nil, exam.ErrDuplicateSubmission, "inserting submission")
	}
	return s, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Submission{}, exam.ErrSubmissionNotFound
	}
	exe := repo.getExec(exec)
	var r submissionRow
	err := sqlx.GetContext(ctx, exe, &r, exe.Rebind("SELECT "+submissionColumns+" FROM submissions WHERE id = ?"), id)
	if err != nil {
		return exam.Submission{}, trapErr(err, exam.ErrSubmissionNotFound, nil, "finding submission")
	}
	return r.submission(), nil
}

func (repo submissionRepository) SubmissionExists(ctx context.Context, userID, questionID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COUNT(*) FROM submissions WHERE user_id = ? AND question_id = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, userID, questionID); err != nil {
		return false, errors.Wrap(err, "checking submission")
	}
	return n > 0, nil
}

// UpdateSubmissionMark only touches submissions that are not manually marked, so two tutors
// racing on the same submission cannot both win.
func (repo submissionRepository) UpdateSubmissionMark(ctx context.Context, s exam.Submission, exec ...core.DBExecutor) (exam.Submission, error) {
	exe := repo.getExec(exec)
	q := `UPDATE submissions SET mark = :mark, marks_obtained = :marks_obtained, comment = :comment,
		marked_by = :marked_by, updated_at = :updated_at
		WHERE id = :id AND mark NOT IN ('tick', 'cross')`
	res, err := sqlx.NamedExecContext(ctx, exe, q, newSubmissionRow(s))
	if err != nil {
		return exam.Submission{}, errors.Wrap(err, "updating submission mark")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return exam.Submission{}, errors.Wrap(err, "updating submission mark")
	}
	if n == 0 {
		if _, err = repo.GetSubmission(ctx, s.ID, exe); err != nil {
			return exam.Submission{}, err
		}
		return exam.Submission{}, exam.ErrAlreadyMarked
	}
	return s, nil
}

func (repo submissionRepository) QueryUserSubmissions(ctx context.Context, userID, examID string, exec ...core.DBExecutor) ([]exam.Submission, error) {
	exe := repo.getExec(exec)
	var rows []submissionRow
	q := exe.Rebind("SELECT " + submissionColumns + " FROM submissions WHERE user_id = ? AND exam_id = ? ORDER BY created_at, id")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, userID, examID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]exam.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.submission())
	}
	return subs, nil
}

func (repo submissionRepository) QuerySubmitterIDs(ctx context.Context, examID string, exec ...core.DBExecutor) ([]string, error) {
	exe := repo.getExec(exec)
	var ids []string
	q := exe.Rebind("SELECT DISTINCT user_id FROM submissions WHERE exam_id = ? ORDER BY user_id")
	if err := sqlx.SelectContext(ctx, exe, &ids, q, examID); err != nil {
		return nil, errors.Wrap(err, "querying submitters")
	}
	return ids, nil
}
