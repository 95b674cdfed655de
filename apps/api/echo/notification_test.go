package echoapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/educator/apps/api/echo"
	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/notification"
	sqlxrepos "github.com/trezcool/educator/storage/database/sqlx"
)

type downGateway struct{}

func (downGateway) Send(context.Context, string, string) (core.DeliveryReceipt, error) {
	return core.DeliveryReceipt{}, core.NewGatewayError(errors.New("connection refused"), "sending SMS")
}

func Test_notificationApi(t *testing.T) {
	env, srv := setup(t)
	staff := env.CreateUser(t, "staff", access.RoleStaff)
	learner := env.CreateUser(t, "learner", access.RoleLearner, "+254711000111")
	nophone := env.CreateUser(t, "nophone", access.RoleLearner)
	staffToken, learnerToken := getToken(t, env, staff), getToken(t, env, learner)

	tests := []httpTest{
		{
			name: "sms", method: http.MethodPost, path: "/v1/notifications", token: staffToken,
			body:     marchallObj(t, notification.NewNotification{UserID: learner.ID, Channel: "SMS", Message: "results are out"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "email", method: http.MethodPost, path: "/v1/notifications", token: staffToken,
			body:     marchallObj(t, notification.NewNotification{UserID: nophone.ID, Channel: "email", Message: "results are out"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "no phone number", method: http.MethodPost, path: "/v1/notifications", token: staffToken,
			body:     marchallObj(t, notification.NewNotification{UserID: nophone.ID, Channel: "sms", Message: "hi"}),
			wantCode: http.StatusUnprocessableEntity, wantData: marchallObj(t, httpErr{Error: notification.ErrNoPhoneNumber.Error(), Kind: "invalid_state"}),
		},
		{
			name: "unknown channel", method: http.MethodPost, path: "/v1/notifications", token: staffToken,
			body:     marchallObj(t, notification.NewNotification{UserID: learner.ID, Channel: "fax", Message: "hi"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "learners cannot notify", method: http.MethodPost, path: "/v1/notifications", token: learnerToken,
			body:     marchallObj(t, notification.NewNotification{UserID: nophone.ID, Channel: "email", Message: "hi"}),
			wantCode: http.StatusForbidden,
		},
		{name: "others' notifications", path: "/v1/notifications?user_id=" + nophone.ID, token: learnerToken, wantCode: http.StatusForbidden},
	}
	runHTTPTests(t, srv, tests)

	rec := do(srv, http.MethodGet, "/v1/notifications", learnerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var ns []notification.Notification
	unmarshal(t, rec, &ns)
	require.Len(t, ns, 1)
	assert.Equal(t, notification.ChannelSMS, ns[0].Channel)
	assert.Equal(t, staff.ID, ns[0].SenderID)
	assert.Len(t, env.SMS.SentMessages(), 1)
}

func Test_notificationApi_gatewayDown(t *testing.T) {
	env := setupEnv(t)
	staff := env.CreateUser(t, "staff", access.RoleStaff)
	learner := env.CreateUser(t, "learner", access.RoleLearner, "+254711000111")

	notifications := notification.NewService(
		env.Conf, sqlxrepos.NewNotificationRepository(env.DB), env.Users, downGateway{}, env.Email, env.Gate, env.Logger)
	srv := newServer(env, echoapi.Deps{Users: env.Users, Notifications: notifications})

	rec := do(srv, http.MethodPost, "/v1/notifications", getToken(t, env, staff),
		marchallObj(t, notification.NewNotification{UserID: learner.ID, Channel: "sms", Message: "hi"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	var body httpErr
	unmarshal(t, rec, &body)
	assert.Equal(t, "gateway_error", body.Kind)

	// nothing is recorded when the gateway failed
	var n int
	require.NoError(t, env.DB.Get(&n, "SELECT COUNT(*) FROM notifications"))
	assert.Equal(t, 0, n)
}
