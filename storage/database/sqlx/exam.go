package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/exam"
)

const examColumns = "id, owner_id, name, video_tutorial_name, created_at, updated_at"

var examOrdering = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type examRow struct {
	ID                string      `db:"id"`
	OwnerID           string      `db:"owner_id"`
	Name              string      `db:"name"`
	VideoTutorialName null.String `db:"video_tutorial_name"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func (r examRow) exam() exam.Exam {
	return exam.Exam{
		ID:                r.ID,
		OwnerID:           r.OwnerID,
		Name:              r.Name,
		VideoTutorialName: r.VideoTutorialName.String,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type participantRow struct {
	ExamID    string    `db:"exam_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

type examRepository struct {
	repository
}

var _ exam.ExamRepository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(exec core.DBExecutor) *examRepository {
	return &examRepository{repository{exec: exec}}
}

func (repo examRepository) CreateExam(ctx context.Context, e exam.Exam, exec ...core.DBExecutor) (exam.Exam, error) {
	e.ID = uuid.New().String()
	row := examRow{
		ID:                e.ID,
		OwnerID:           e.OwnerID,
		Name:              e.Name,
		VideoTutorialName: null.NewString(e.VideoTutorialName, e.VideoTutorialName != ""),
		CreatedAt:         e.CreatedAt.UTC(),
		UpdatedAt:         e.UpdatedAt.UTC(),
	}
	q := `INSERT INTO exams (` + examColumns + `)
		VALUES (:id, :owner_id, :name, :video_tutorial_name, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return exam.Exam{}, trapErr(err, nil, exam.ErrExamNameExists, "inserting exam")
	}
	return e, nil
}

func (repo examRepository) GetExam(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Exam, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Exam{}, exam.ErrExamNotFound
	}
	exe := repo.getExec(exec)
	var r examRow
	err := sqlx.GetContext(ctx, exe, &r, exe.Rebind("SELECT "+examColumns+" FROM exams WHERE id = ?"), id)
	if err != nil {
		return exam.Exam{}, trapErr(err, exam.ErrExamNotFound, nil, "finding exam")
	}
	return r.exam(), nil
}

func (repo examRepository) ExamNameExists(ctx context.Context, name string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	var n int
	if err := sqlx.GetContext(ctx, exe, &n, exe.Rebind("SELECT COUNT(*) FROM exams WHERE name = ?"), name); err != nil {
		return false, errors.Wrap(err, "counting exams by name")
	}
	return n > 0, nil
}

func (repo examRepository) QueryExams(ctx context.Context, filter *exam.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]exam.Exam, error) {
	exe := repo.getExec(exec)
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			where = append(where, "LOWER(name) LIKE ?")
			args = append(args, likePattern(filter.Search))
		}
		if filter.OwnerID != "" {
			where = append(where, "owner_id = ?")
			args = append(args, filter.OwnerID)
		}
	}

	q := "SELECT " + examColumns + " FROM exams"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, examOrdering, "created_at DESC")

	var rows []examRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, r := range rows {
		exams = append(exams, r.exam())
	}
	return exams, nil
}

func (repo examRepository) AddParticipant(ctx context.Context, p exam.Participant, exec ...core.DBExecutor) (exam.Participant, error) {
	row := participantRow{ExamID: p.ExamID, UserID: p.UserID, CreatedAt: p.CreatedAt.UTC()}
	q := "INSERT INTO exam_participants (exam_id, user_id, created_at) VALUES (:exam_id, :user_id, :created_at)"
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return exam.Participant{}, trapErr(err, nil, exam.ErrParticipantExists, "inserting participant")
	}
	return p, nil
}

func (repo examRepository) IsParticipant(ctx context.Context, examID, userID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COUNT(*) FROM exam_participants WHERE exam_id = ? AND user_id = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, examID, userID); err != nil {
		return false, errors.Wrap(err, "checking participant")
	}
	return n > 0, nil
}

func (repo examRepository) CountParticipants(ctx context.Context, examID string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COUNT(*) FROM exam_participants WHERE exam_id = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, examID); err != nil {
		return 0, errors.Wrap(err, "counting participants")
	}
	return n, nil
}

func (repo examRepository) QueryParticipants(ctx context.Context, examID string, exec ...core.DBExecutor) ([]exam.Participant, error) {
	exe := repo.getExec(exec)
	var rows []participantRow
	q := exe.Rebind("SELECT exam_id, user_id, created_at FROM exam_participants WHERE exam_id = ? ORDER BY created_at, user_id")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, examID); err != nil {
		return nil, errors.Wrap(err, "querying participants")
	}
	participants := make([]exam.Participant, 0, len(rows))
	for _, r := range rows {
		participants = append(participants, exam.Participant{ExamID: r.ExamID, UserID: r.UserID, CreatedAt: r.CreatedAt.UTC()})
	}
	return participants, nil
}
