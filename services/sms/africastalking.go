// Package smssvc implements core.SMSGateway.
package smssvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/educator/core"
)

const (
	atLiveURL    = "https://api.africastalking.com/version1/messaging"
	atSandboxURL = "https://api.sandbox.africastalking.com/version1/messaging"

	atStatusSent      = 100
	atStatusProcessed = 101
	atStatusQueued    = 102
)

type (
	atRecipient struct {
		StatusCode int    `json:"statusCode"`
		Number     string `json:"number"`
		Status     string `json:"status"`
		Cost       string `json:"cost"`
		MessageID  string `json:"messageId"`
	}

	atResponse struct {
		SMSMessageData struct {
			Message    string        `json:"Message"`
			Recipients []atRecipient `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
)

// AfricasTalkingGateway sends SMS through the Africa's Talking bulk messaging API.
type AfricasTalkingGateway struct {
	username string
	apiKey   string
	senderID string
	baseURL  string
	client   *rest.Client
}

var _ core.SMSGateway = (*AfricasTalkingGateway)(nil)

func NewAfricasTalkingGateway(conf core.SMSConfig) (*AfricasTalkingGateway, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.Username, "Username"),
		vala.StringNotEmpty(conf.APIKey, "APIKey"),
	).Check()
	if err != nil {
		return nil, err
	}

	baseURL := atLiveURL
	if conf.Sandbox {
		baseURL = atSandboxURL
	}
	return &AfricasTalkingGateway{
		username: conf.Username,
		apiKey:   conf.APIKey,
		senderID: conf.SenderID,
		baseURL:  baseURL,
		client:   &rest.Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}},
	}, nil
}

func (gw *AfricasTalkingGateway) Send(ctx context.Context, phone, message string) (core.DeliveryReceipt, error) {
	form := url.Values{}
	form.Set("username", gw.username)
	form.Set("to", phone)
	form.Set("message", message)
	if gw.senderID != "" {
		form.Set("from", gw.senderID)
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: gw.baseURL,
		Headers: map[string]string{
			"apiKey":       gw.apiKey,
			"Accept":       "application/json",
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}
	res, err := gw.send(ctx, req)
	if err != nil {
		return core.DeliveryReceipt{}, core.NewGatewayError(err, "sending SMS")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.DeliveryReceipt{}, core.NewGatewayError(
			errors.Errorf("status %d: %s", res.StatusCode, res.Body), "SMS gateway rejected the message")
	}

	var body atResponse
	if err = json.Unmarshal([]byte(res.Body), &body); err != nil {
		return core.DeliveryReceipt{}, core.NewGatewayError(err, "decoding SMS gateway response")
	}
	recipients := body.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return core.DeliveryReceipt{}, core.NewGatewayError(errors.New(body.SMSMessageData.Message), "SMS was not accepted")
	}

	r := recipients[0]
	switch r.StatusCode {
	case atStatusSent, atStatusProcessed, atStatusQueued:
	default:
		return core.DeliveryReceipt{}, core.NewGatewayError(errors.Errorf("%s (%d)", r.Status, r.StatusCode), "SMS was not accepted")
	}
	return core.DeliveryReceipt{
		MessageID: r.MessageID,
		Recipient: r.Number,
		Status:    r.Status,
		Cost:      r.Cost,
		SentAt:    time.Now().UTC(),
	}, nil
}

func (gw *AfricasTalkingGateway) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	httpRes, err := gw.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}
