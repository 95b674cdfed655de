package smssvc

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/educator/core"
)

// ConsoleGateway logs messages instead of sending them and keeps a copy of each.
type ConsoleGateway struct {
	std *log.Logger

	mu   sync.Mutex
	sent []SentMessage
}

type SentMessage struct {
	Phone   string
	Message string
}

var _ core.SMSGateway = (*ConsoleGateway)(nil)

// NewConsoleGateway accepts a nil logger for silent use in tests.
func NewConsoleGateway(std *log.Logger) *ConsoleGateway {
	return &ConsoleGateway{std: std}
}

func (gw *ConsoleGateway) Send(ctx context.Context, phone, message string) (core.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return core.DeliveryReceipt{}, core.NewGatewayError(err, "sending SMS")
	}
	if gw.std != nil {
		gw.std.Println(fmt.Sprintf("SMS to %s: %s", phone, message))
	}

	gw.mu.Lock()
	gw.sent = append(gw.sent, SentMessage{Phone: phone, Message: message})
	gw.mu.Unlock()

	return core.DeliveryReceipt{
		MessageID: uuid.New().String(),
		Recipient: phone,
		Status:    "Success",
		SentAt:    time.Now().UTC(),
	}, nil
}

func (gw *ConsoleGateway) SentMessages() []SentMessage {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return append([]SentMessage(nil), gw.sent...)
}

// New returns the Africa's Talking gateway when an API key is configured, the console gateway otherwise.
func New(conf core.SMSConfig, std *log.Logger) (core.SMSGateway, error) {
	if conf.APIKey == "" {
		return NewConsoleGateway(std), nil
	}
	return NewAfricasTalkingGateway(conf)
}
