package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/mentorship"
)

const mentorshipColumns = "id, learner_id, tutor_id, challenge, is_active, created_at, updated_at"

type mentorshipRow struct {
	ID        string    `db:"id"`
	LearnerID string    `db:"learner_id"`
	TutorID   string    `db:"tutor_id"`
	Challenge string    `db:"challenge"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func newMentorshipRow(m mentorship.Mentorship) mentorshipRow {
	return mentorshipRow{
		ID:        m.ID,
		LearnerID: m.LearnerID,
		TutorID:   m.TutorID,
		Challenge: m.Challenge,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func (r mentorshipRow) mentorship() mentorship.Mentorship {
	return mentorship.Mentorship{
		ID:        r.ID,
		LearnerID: r.LearnerID,
		TutorID:   r.TutorID,
		Challenge: r.Challenge,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type mentorshipRepository struct {
	repository
}

var _ mentorship.Repository = (*mentorshipRepository)(nil) // interface compliance check

func NewMentorshipRepository(exec core.DBExecutor) *mentorshipRepository {
	return &mentorshipRepository{repository{exec: exec}}
}

func (repo mentorshipRepository) CreateMentorship(ctx context.Context, m mentorship.Mentorship, exec ...core.DBExecutor) (mentorship.Mentorship, error) {
	m.ID = uuid.New().String()
	q := `INSERT INTO mentorships (` + mentorshipColumns + `)
		VALUES (:id, :learner_id, :tutor_id, :challenge, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newMentorshipRow(m)); err != nil {
		return mentorship.Mentorship{}, errors.Wrap(err, "inserting mentorship")
	}
	return m, nil
}

func (repo mentorshipRepository) GetMentorship(ctx context.Context, id string, exec ...core.DBExecutor) (mentorship.Mentorship, error) {
	if _, err := uuid.Parse(id); err != nil {
		return mentorship.Mentorship{}, mentorship.ErrNotFound
	}
	exe := repo.getExec(exec)
	var r mentorshipRow
	err := sqlx.GetContext(ctx, exe, &r, exe.Rebind("SELECT "+mentorshipColumns+" FROM mentorships WHERE id = ?"), id)
	if err != nil {
		return mentorship.Mentorship{}, trapErr(err, mentorship.ErrNotFound, nil, "finding mentorship")
	}
	return r.mentorship(), nil
}

func (repo mentorshipRepository) ActiveMentorshipExists(ctx context.Context, learnerID, tutorID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	var n int
	q := exe.Rebind("SELECT COUNT(*) FROM mentorships WHERE learner_id = ? AND tutor_id = ? AND is_active = ?")
	if err := sqlx.GetContext(ctx, exe, &n, q, learnerID, tutorID, true); err != nil {
		return false, errors.Wrap(err, "checking active mentorship")
	}
	return n > 0, nil
}

func (repo mentorshipRepository) QueryTutorMentorships(ctx context.Context, tutorID string, activeOnly bool, exec ...core.DBExecutor) ([]mentorship.Mentorship, error) {
	exe := repo.getExec(exec)
	q := "SELECT " + mentorshipColumns + " FROM mentorships WHERE tutor_id = ?"
	args := []interface{}{tutorID}
	if activeOnly {
		q += " AND is_active = ?"
		args = append(args, true)
	}
	q += " ORDER BY created_at DESC, id"

	var rows []mentorshipRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying mentorships")
	}
	mentorships := make([]mentorship.Mentorship, 0, len(rows))
	for _, r := range rows {
		mentorships = append(mentorships, r.mentorship())
	}
	return mentorships, nil
}

func (repo mentorshipRepository) UpdateMentorship(ctx context.Context, m mentorship.Mentorship, exec ...core.DBExecutor) (mentorship.Mentorship, error) {
	q := "UPDATE mentorships SET challenge = :challenge, is_active = :is_active, updated_at = :updated_at WHERE id = :id"
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newMentorshipRow(m))
	if err != nil {
		return mentorship.Mentorship{}, errors.Wrap(err, "updating mentorship")
	}
	if err = checkAffected(res, mentorship.ErrNotFound, "updating mentorship"); err != nil {
		return mentorship.Mentorship{}, err
	}
	return m, nil
}
