package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/exam"
)

const performanceSelect = `SELECT p.user_id, p.exam_id, p.tick_count, p.cross_count, p.unmarked_count,
	p.auto_tick_count, p.auto_cross_count, p.marks_obtained, p.total_marks, p.question_count, p.percentage,
	p.updated_at, g.id AS grade_id, g.starting_percentage, g.ending_percentage, g.letter_grade, g.four_point_zero_grade
	FROM performances p JOIN grades g ON g.id = p.grade_id`

type gradeRow struct {
	ID                 int     `db:"grade_id"`
	StartingPercentage int     `db:"starting_percentage"`
	EndingPercentage   int     `db:"ending_percentage"`
	LetterGrade        string  `db:"letter_grade"`
	FourPointZeroGrade float64 `db:"four_point_zero_grade"`
}

func (r gradeRow) grade() exam.Grade {
	return exam.Grade{
		ID:                 r.ID,
		StartingPercentage: r.StartingPercentage,
		EndingPercentage:   r.EndingPercentage,
		LetterGrade:        r.LetterGrade,
		FourPointZeroGrade: r.FourPointZeroGrade,
	}
}

type performanceRow struct {
	UserID         string    `db:"user_id"`
	ExamID         string    `db:"exam_id"`
	TickCount      int       `db:"tick_count"`
	CrossCount     int       `db:"cross_count"`
	UnmarkedCount  int       `db:"unmarked_count"`
	AutoTickCount  int       `db:"auto_tick_count"`
	AutoCrossCount int       `db:"auto_cross_count"`
	MarksObtained  int       `db:"marks_obtained"`
	TotalMarks     int       `db:"total_marks"`
	QuestionCount  int       `db:"question_count"`
	Percentage     int       `db:"percentage"`
	UpdatedAt      time.Time `db:"updated_at"`
	gradeRow
}

func newPerformanceRow(p exam.Performance) performanceRow {
	return performanceRow{
		UserID:         p.UserID,
		ExamID:         p.ExamID,
		TickCount:      p.TickCount,
		CrossCount:     p.CrossCount,
		UnmarkedCount:  p.UnmarkedCount,
		AutoTickCount:  p.AutoTickCount,
		AutoCrossCount: p.AutoCrossCount,
		MarksObtained:  p.MarksObtained,
		TotalMarks:     p.TotalMarks,
		QuestionCount:  p.QuestionCount,
		Percentage:     p.Percentage,
		UpdatedAt:      p.UpdatedAt.UTC(),
		gradeRow:       gradeRow{ID: p.Grade.ID},
	}
}

func (r performanceRow) performance() exam.Performance {
	return exam.Performance{
		UserID:         r.UserID,
		ExamID:         r.ExamID,
		TickCount:      r.TickCount,
		CrossCount:     r.CrossCount,
		UnmarkedCount:  r.UnmarkedCount,
		AutoTickCount:  r.AutoTickCount,
		AutoCrossCount: r.AutoCrossCount,
		MarksObtained:  r.MarksObtained,
		TotalMarks:     r.TotalMarks,
		QuestionCount:  r.QuestionCount,
		Percentage:     r.Percentage,
		Grade:          r.grade(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type staleRow struct {
	UserID    string    `db:"user_id"`
	ExamID    string    `db:"exam_id"`
	Reason    string    `db:"reason"`
	FlaggedAt time.Time `db:"flagged_at"`
}

type performanceRepository struct {
	repository
}

var _ exam.PerformanceRepository = (*performanceRepository)(nil) // interface compliance check

func NewPerformanceRepository(exec core.DBExecutor) *performanceRepository {
	return &performanceRepository{repository{exec: exec}}
}

func (repo performanceRepository) UpsertPerformance(ctx context.Context, p exam.Performance, exec ...core.DBExecutor) (exam.Performance, error) {
	q := `INSERT INTO performances (user_id, exam_id, tick_count, cross_count, unmarked_count, auto_tick_count,
			auto_cross_count, marks_obtained, total_marks, question_count, percentage, grade_id, updated_at)
		VALUES (:user_id, :exam_id, :tick_count, :cross_count, :unmarked_count, :auto_tick_count,
			:auto_cross_count, :marks_obtained, :total_marks, :question_count, :percentage, :grade_id, :updated_at)
		ON CONFLICT (user_id, exam_id) DO UPDATE SET
			tick_count = excluded.tick_count,
			cross_count = excluded.cross_count,
			unmarked_count = excluded.unmarked_count,
			auto_tick_count = excluded.auto_tick_count,
			auto_cross_count = excluded.auto_cross_count,
			marks_obtained = excluded.marks_obtained,
			total_marks = excluded.total_marks,
			question_count = excluded.question_count,
			percentage = excluded.percentage,
			grade_id = excluded.grade_id,
			updated_at = excluded.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newPerformanceRow(p)); err != nil {
		return exam.Performance{}, errors.Wrap(err, "upserting performance")
	}
	return p, nil
}

func (repo performanceRepository) GetPerformance(ctx context.Context, userID, examID string, exec ...core.DBExecutor) (exam.Performance, error) {
	exe := repo.getExec(exec)
	var r performanceRow
	q := exe.Rebind(performanceSelect + " WHERE p.user_id = ? AND p.exam_id = ?")
	if err := sqlx.GetContext(ctx, exe, &r, q, userID, examID); err != nil {
		return exam.Performance{}, trapErr(err, exam.ErrPerformanceNotFound, nil, "finding performance")
	}
	return r.performance(), nil
}

func (repo performanceRepository) QueryPerformances(ctx context.Context, examID string, exec ...core.DBExecutor) ([]exam.Performance, error) {
	exe := repo.getExec(exec)
	var rows []performanceRow
	q := exe.Rebind(performanceSelect + " WHERE p.exam_id = ? ORDER BY p.percentage DESC, p.user_id")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, examID); err != nil {
		return nil, errors.Wrap(err, "querying performances")
	}
	perfs := make([]exam.Performance, 0, len(rows))
	for _, r := range rows {
		perfs = append(perfs, r.performance())
	}
	return perfs, nil
}

func (repo performanceRepository) FlagStalePerformance(ctx context.Context, sp exam.StalePerformance, exec ...core.DBExecutor) error {
	row := staleRow{UserID: sp.UserID, ExamID: sp.ExamID, Reason: sp.Reason, FlaggedAt: sp.FlaggedAt.UTC()}
	q := `INSERT INTO stale_performances (user_id, exam_id, reason, flagged_at)
		VALUES (:user_id, :exam_id, :reason, :flagged_at)
		ON CONFLICT (user_id, exam_id) DO UPDATE SET reason = excluded.reason, flagged_at = excluded.flagged_at`
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	return errors.Wrap(err, "flagging stale performance")
}

func (repo performanceRepository) ClearStalePerformance(ctx context.Context, userID, examID string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	_, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM stale_performances WHERE user_id = ? AND exam_id = ?"), userID, examID)
	return errors.Wrap(err, "clearing stale performance")
}

func (repo performanceRepository) QueryStalePerformances(ctx context.Context, limit int, exec ...core.DBExecutor) ([]exam.StalePerformance, error) {
	exe := repo.getExec(exec)
	var rows []staleRow
	q := exe.Rebind("SELECT user_id, exam_id, reason, flagged_at FROM stale_performances ORDER BY flagged_at LIMIT ?")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, limit); err != nil {
		return nil, errors.Wrap(err, "querying stale performances")
	}
	stale := make([]exam.StalePerformance, 0, len(rows))
	for _, r := range rows {
		stale = append(stale, exam.StalePerformance{UserID: r.UserID, ExamID: r.ExamID, Reason: r.Reason, FlaggedAt: r.FlaggedAt.UTC()})
	}
	return stale, nil
}

type gradeRepository struct {
	repository
}

var _ exam.GradeRepository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{repository{exec: exec}}
}

func (repo gradeRepository) QueryGrades(ctx context.Context, exec ...core.DBExecutor) ([]exam.Grade, error) {
	exe := repo.getExec(exec)
	var rows []gradeRow
	q := `SELECT id AS grade_id, starting_percentage, ending_percentage, letter_grade, four_point_zero_grade
		FROM grades ORDER BY starting_percentage`
	if err := sqlx.SelectContext(ctx, exe, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]exam.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.grade())
	}
	return grades, nil
}
