package core

import (
	"context"
	"time"
)

type (
	// DeliveryReceipt is what an SMSGateway hands back once a message was accepted.
	DeliveryReceipt struct {
		MessageID string    `json:"message_id"`
		Recipient string    `json:"recipient"`
		Status    string    `json:"status"`
		Cost      string    `json:"cost,omitempty"`
		SentAt    time.Time `json:"sent_at"`
	}

	// SMSGateway sends text messages. Failures must be returned as gateway errors.
	SMSGateway interface {
		Send(ctx context.Context, phone, message string) (DeliveryReceipt, error)
	}
)
