package notification

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
	ErrNoPhoneNumber  = core.NewInvalidStateError("recipient has no phone number")
	ErrUnknownChannel = core.NewInvalidStateError("unknown notification channel")
)

const emailStatusQueued = "queued"

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications returns the notifications sent to userID, newest first.
		QueryNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Notification, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error)
	}

	Service struct {
		conf   *core.Config
		repo   Repository
		users  UserGetter
		sms    core.SMSGateway
		mail   core.EmailService
		gate   *access.Gate
		logger core.Logger
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	users UserGetter,
	sms core.SMSGateway,
	mail core.EmailService,
	gate *access.Gate,
	logger core.Logger,
) *Service {
	return &Service{
		conf:   conf,
		repo:   repo,
		users:  users,
		sms:    sms,
		mail:   mail,
		gate:   gate,
		logger: logger,
	}
}

// NotifyUser sends nn.Message to the user through the requested channel and records it.
// The record is only written once the gateway accepted the message.
func (svc *Service) NotifyUser(ctx context.Context, actor access.Actor, nn NewNotification) (Notification, error) {
	if err := svc.gate.AuthorizeActor(actor, access.NotifyUser); err != nil {
		return Notification{}, err
	}

	usr, err := svc.users.GetByID(ctx, nn.UserID)
	if err != nil {
		return Notification{}, err
	}

	var receipt core.DeliveryReceipt
	switch nn.Channel {
	case ChannelSMS:
		if usr.PhoneNumber == "" {
			return Notification{}, ErrNoPhoneNumber
		}
		if receipt, err = svc.sms.Send(ctx, usr.PhoneNumber, nn.Message); err != nil {
			return Notification{}, err
		}
	case ChannelEmail:
		receipt = svc.sendEmail(usr, nn)
	default:
		return Notification{}, ErrUnknownChannel
	}

	n, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    usr.ID,
		SenderID:  actor.ID,
		Channel:   nn.Channel,
		Message:   nn.Message,
		Receipt:   receipt,
		CreatedAt: time.Now().UTC(),
	})
	return n, errors.Wrap(err, "creating notification")
}

// sendEmail queues the message; delivery failures are reported by the email service itself.
func (svc *Service) sendEmail(usr user.User, nn NewNotification) core.DeliveryReceipt {
	subject := nn.Subject
	if subject == "" {
		subject = fmt.Sprintf("[%s] New message", svc.conf.AppName)
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject: subject,
		BodyStr: nn.Message,
	})
	return core.DeliveryReceipt{
		Recipient: usr.Email,
		Status:    emailStatusQueued,
		SentAt:    time.Now().UTC(),
	}
}

// ListForUser returns the notifications a user received. Only staff and admins may read someone else's.
func (svc *Service) ListForUser(ctx context.Context, actor access.Actor, userID string) ([]Notification, error) {
	if actor.ID != userID && !(actor.Is(access.RoleStaff) || actor.Is(access.RoleAdmin)) {
		return nil, core.NewForbiddenError("only staff and admins can read other users' notifications")
	}
	return svc.repo.QueryNotifications(ctx, userID)
}
