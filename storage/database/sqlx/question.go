package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/exam"
)

const questionColumns = "id, exam_id, number, text, marks, multi_choice, answer, created_at, updated_at"

type questionRow struct {
	ID          string             `db:"id"`
	ExamID      string             `db:"exam_id"`
	Number      int                `db:"number"`
	Text        string             `db:"text"`
	Marks       int                `db:"marks"`
	MultiChoice types.NullJSONText `db:"multi_choice"`
	Answer      string             `db:"answer"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

func newQuestionRow(q exam.Question) (questionRow, error) {
	row := questionRow{
		ID:        q.ID,
		ExamID:    q.ExamID,
		Number:    q.Number,
		Text:      q.Text,
		Marks:     q.Marks,
		Answer:    q.Answer,
		CreatedAt: q.CreatedAt.UTC(),
		UpdatedAt: q.UpdatedAt.UTC(),
	}
	if q.IsMultiChoice() {
		options, err := json.Marshal(q.MultiChoice)
		if err != nil {
			return questionRow{}, errors.Wrap(err, "encoding multiple choice options")
		}
		row.MultiChoice = types.NullJSONText{JSONText: options, Valid: true}
	}
	return row, nil
}

func (r questionRow) question() (exam.Question, error) {
	q := exam.Question{
		ID:        r.ID,
		ExamID:    r.ExamID,
		Number:    r.Number,
		Text:      r.Text,
		Marks:     r.Marks,
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.MultiChoice.Valid {
		if err := r.MultiChoice.Unmarshal(&q.MultiChoice); err != nil {
			return exam.Question{}, errors.Wrapf(err, "decoding options of question %s", r.ID)
		}
	}
	return q, nil
}

type questionRepository struct {
	repository
}

var _ exam.QuestionRepository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(exec core.DBExecutor) *questionRepository {
	return &questionRepository{repository{exec: exec}}
}

func (repo questionRepository) CreateQuestion(ctx context.Context, q exam.Question, exec ...core.DBExecutor) (exam.Question, error) {
	q.ID = uuid.New().String()
	row, err := newQuestionRow(q)
	if err != nil {
		return exam.Question{}, err
	}
	stmt := `INSERT INTO questions (` + questionColumns + `)
		VALUES (:id, :exam_id, :number, :text, :marks, :multi_choice, :answer, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), stmt, row); err != nil {
		return exam.Question{}, trapErr(err, nil, exam.ErrQuestionNumberExists, "inserting question")
	}
	return q, nil
}

func (repo questionRepository) GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (exam.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Question{}, exam.ErrQuestionNotFound
	}
	exe := repo.getExec(exec)
	var r questionRow
	err := sqlx.GetContext(ctx, exe, &r, exe.Rebind("SELECT "+questionColumns+" FROM questions WHERE id = ?"), id)
	if err != nil {
		return exam.Question{}, trapErr(err, exam.ErrQuestionNotFound, nil, "finding question")
	}
	return r.question()
}

func (repo questionRepository) MaxQuestionNumber(ctx context.Context, examID string, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COALESCE(MAX(number), 0) FROM questions WHERE exam_id = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, examID); err != nil {
		return 0, errors.Wrap(err, "finding max question number")
	}
	return n, nil
}

func (repo questionRepository) QuestionNumberExists(ctx context.Context, examID string, number int, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COUNT(*) FROM questions WHERE exam_id = ? AND number = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, examID, number); err != nil {
		return false, errors.Wrap(err, "checking question number")
	}
	return n > 0, nil
}

func (repo questionRepository) QueryQuestions(ctx context.Context, examID string, exec ...core.DBExecutor) ([]exam.Question, error) {
	exe := repo.getExec(exec)
	var rows []questionRow
	q := exe.Rebind("SELECT " + questionColumns + " FROM questions WHERE exam_id = ? ORDER BY number")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, examID); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]exam.Question, 0, len(rows))
	for _, r := range rows {
		question, err := r.question()
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}
