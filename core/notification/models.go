package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educator/core"
)

// Channels
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Notification is the record of a message sent to a user.
type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	SenderID  string               `json:"sender_id"`
	Channel   string               `json:"channel"`
	Message   string               `json:"message"`
	Receipt   core.DeliveryReceipt `json:"receipt"`
	CreatedAt time.Time            `json:"created_at"`
}

type NewNotification struct {
	UserID  string `json:"user_id" validate:"required"`
	Channel string `json:"channel" validate:"required,oneof=sms email"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=1600"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.UserID = core.CleanString(nn.UserID)
	nn.Channel = core.CleanString(nn.Channel, true /* lower */)
	nn.Subject = core.CleanString(nn.Subject)
	nn.Message = core.CleanString(nn.Message)
	return validate.Struct(nn)
}
