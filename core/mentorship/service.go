package mentorship

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("mentorship not found")
	ErrNotTutor       = errors.New("mentorships can only be requested from tutors")
	ErrAlreadyClosed  = core.NewConflictError("mentorship is already closed")
	ErrNotYourMentee  = core.NewForbiddenError("only the requested tutor can close a mentorship")
	ErrActiveRequest  = core.NewConflictError("an active mentorship with this tutor already exists")
	errNotTutorViewer = core.NewForbiddenError("only tutors can list their mentorships")
)

const requestTemplate = "mentorship_request"

type (
	Repository interface {
		CreateMentorship(ctx context.Context, m Mentorship, exec ...core.DBExecutor) (Mentorship, error)
		GetMentorship(ctx context.Context, id string, exec ...core.DBExecutor) (Mentorship, error)
		ActiveMentorshipExists(ctx context.Context, learnerID, tutorID string, exec ...core.DBExecutor) (bool, error)
		// QueryTutorMentorships returns the mentorships addressed to tutorID, newest first.
		QueryTutorMentorships(ctx context.Context, tutorID string, activeOnly bool, exec ...core.DBExecutor) ([]Mentorship, error)
		UpdateMentorship(ctx context.Context, m Mentorship, exec ...core.DBExecutor) (Mentorship, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error)
	}

	Service struct {
		db     core.DB
		repo   Repository
		users  UserGetter
		mail   core.EmailService
		gate   *access.Gate
		logger core.Logger
	}
)

func NewService(db core.DB, repo Repository, users UserGetter, mail core.EmailService, gate *access.Gate, logger core.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		users:  users,
		mail:   mail,
		gate:   gate,
		logger: logger,
	}
}

// Request records a learner's mentorship request and emails the tutor once it is stored.
func (svc *Service) Request(ctx context.Context, actor access.Actor, nm NewMentorship) (Mentorship, error) {
	if err := svc.gate.AuthorizeActor(actor, access.RequestMentorship); err != nil {
		return Mentorship{}, err
	}

	var (
		m              Mentorship
		tutor, learner user.User
	)
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if tutor, err = svc.users.GetByID(ctx, nm.TutorID, tx); err != nil {
			return err
		}
		if !tutor.IsTutor() {
			return core.NewValidationError(ErrNotTutor, core.FieldError{Field: "tutor_id", Error: ErrNotTutor.Error()})
		}
		if learner, err = svc.users.GetByID(ctx, actor.ID, tx); err != nil {
			return err
		}

		exists, err := svc.repo.ActiveMentorshipExists(ctx, learner.ID, tutor.ID, tx)
		if err != nil {
			return errors.Wrap(err, "checking active mentorship")
		}
		if exists {
			return ErrActiveRequest
		}

		now := time.Now().UTC()
		m, err = svc.repo.CreateMentorship(ctx, Mentorship{
			LearnerID: learner.ID,
			TutorID:   tutor.ID,
			Challenge: nm.Challenge,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}, tx)
		return errors.Wrap(err, "creating mentorship")
	})
	if err != nil {
		return Mentorship{}, err
	}

	svc.notifyTutor(tutor, learner, m)
	return m, nil
}

func (svc *Service) notifyTutor(tutor, learner user.User, m Mentorship) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: tutor.Username, Address: tutor.Email}},
		Subject:      fmt.Sprintf("%s requested your mentorship", learner.Username),
		TemplateName: requestTemplate,
		TemplateData: RequestEmailData{
			TutorName:   tutor.Username,
			LearnerName: learner.Username,
			Challenge:   m.Challenge,
		},
	}
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering mentorship request email: %v", err), err)
		return
	}
	if !msg.HasContent() {
		msg.BodyStr = fmt.Sprintf("%s needs your help with: %s", learner.Username, m.Challenge)
	}
	svc.mail.SendMessages(msg)
}

// ListForTutor returns the mentorships addressed to the acting tutor.
func (svc *Service) ListForTutor(ctx context.Context, actor access.Actor, activeOnly bool) ([]Mentorship, error) {
	if !actor.Is(access.RoleTutor) {
		return nil, errNotTutorViewer
	}
	return svc.repo.QueryTutorMentorships(ctx, actor.ID, activeOnly)
}

// Close ends an active mentorship. Only its tutor may close it.
func (svc *Service) Close(ctx context.Context, actor access.Actor, id string) (Mentorship, error) {
	var m Mentorship
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if m, err = svc.repo.GetMentorship(ctx, id, tx); err != nil {
			return err
		}
		if m.TutorID != actor.ID {
			return ErrNotYourMentee
		}
		if !m.IsActive {
			return ErrAlreadyClosed
		}
		m.IsActive = false
		m.UpdatedAt = time.Now().UTC()
		m, err = svc.repo.UpdateMentorship(ctx, m, tx)
		return errors.Wrap(err, "closing mentorship")
	})
	return m, err
}
