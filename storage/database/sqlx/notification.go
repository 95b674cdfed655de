package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/notification"
)

const notificationColumns = "id, user_id, sender_id, channel, message, provider_message_id, recipient, status, cost, created_at"

type notificationRow struct {
	ID                string      `db:"id"`
	UserID            string      `db:"user_id"`
	SenderID          string      `db:"sender_id"`
	Channel           string      `db:"channel"`
	Message           string      `db:"message"`
	ProviderMessageID null.String `db:"provider_message_id"`
	Recipient         string      `db:"recipient"`
	Status            string      `db:"status"`
	Cost              null.String `db:"cost"`
	CreatedAt         time.Time   `db:"created_at"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:       r.ID,
		UserID:   r.UserID,
		SenderID: r.SenderID,
		Channel:  r.Channel,
		Message:  r.Message,
		Receipt: core.DeliveryReceipt{
			MessageID: r.ProviderMessageID.String,
			Recipient: r.Recipient,
			Status:    r.Status,
			Cost:      r.Cost.String,
			SentAt:    r.CreatedAt.UTC(),
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	repository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{repository{exec: exec}}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := notificationRow{
		ID:                n.ID,
		UserID:            n.UserID,
		SenderID:          n.SenderID,
		Channel:           n.Channel,
		Message:           n.Message,
		ProviderMessageID: null.NewString(n.Receipt.MessageID, n.Receipt.MessageID != ""),
		Recipient:         n.Receipt.Recipient,
		Status:            n.Receipt.Status,
		Cost:              null.NewString(n.Receipt.Cost, n.Receipt.Cost != ""),
		CreatedAt:         n.CreatedAt.UTC(),
	}
	q := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :sender_id, :channel, :message, :provider_message_id, :recipient, :status, :cost, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, exec ...core.DBExecutor) ([]notification.Notification, error) {
	exe := repo.getExec(exec)
	var rows []notificationRow
	q := exe.Rebind("SELECT " + notificationColumns + " FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id")
	if err := sqlx.SelectContext(ctx, exe, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifications := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.notification())
	}
	return notifications, nil
}
