package notification_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/notification"
	testutil "github.com/trezcool/educator/tests"
)

func TestService_NotifyUser(t *testing.T) {
	env := testutil.NewEnv(t)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	staff := env.CreateUser(t, "staff", access.RoleStaff)
	learner := env.CreateUser(t, "learner", access.RoleLearner, "+254711000111")
	nophone := env.CreateUser(t, "nophone", access.RoleLearner)

	tests := []struct {
		name       string
		actor      access.Actor
		nn         notification.NewNotification
		wantKind   core.ErrorKind
		wantStatus string
	}{
		{
			name:       "sms",
			actor:      tutor.Actor(),
			nn:         notification.NewNotification{UserID: learner.ID, Channel: notification.ChannelSMS, Message: "exam tomorrow"},
			wantStatus: "Success",
		},
		{
			name:       "email",
			actor:      staff.Actor(),
			nn:         notification.NewNotification{UserID: learner.ID, Channel: notification.ChannelEmail, Subject: "Reminder", Message: "exam tomorrow"},
			wantStatus: "queued",
		},
		{
			name:     "learners cannot notify",
			actor:    learner.Actor(),
			nn:       notification.NewNotification{UserID: nophone.ID, Channel: notification.ChannelEmail, Message: "hi"},
			wantKind: core.KindForbidden,
		},
		{
			name:     "no phone number",
			actor:    tutor.Actor(),
			nn:       notification.NewNotification{UserID: nophone.ID, Channel: notification.ChannelSMS, Message: "hi"},
			wantKind: core.KindInvalidState,
		},
		{
			name:     "unknown channel",
			actor:    tutor.Actor(),
			nn:       notification.NewNotification{UserID: learner.ID, Channel: "pigeon", Message: "hi"},
			wantKind: core.KindInvalidState,
		},
		{
			name:     "unknown user",
			actor:    tutor.Actor(),
			nn:       notification.NewNotification{UserID: "4a4ddc52-5d44-4b58-9e0d-57dbd4e3f7a1", Channel: notification.ChannelSMS, Message: "hi"},
			wantKind: core.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := env.Notifications.NotifyUser(context.Background(), tt.actor, tt.nn)
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err), "error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, n.ID)
			assert.Equal(t, tt.actor.ID, n.SenderID)
			assert.Equal(t, tt.wantStatus, n.Receipt.Status)
		})
	}

	sms := env.SMS.SentMessages()
	require.Len(t, sms, 1)
	assert.Equal(t, "+254711000111", sms[0].Phone)
	assert.Equal(t, "exam tomorrow", sms[0].Message)

	emails := env.Email.SentMessages()
	require.Len(t, emails, 1)
	assert.Equal(t, "Reminder", emails[0].Subject)
	assert.Equal(t, learner.Email, emails[0].To[0].Address)

	got, err := env.Notifications.ListForUser(context.Background(), learner.Actor(), learner.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, notification.ChannelEmail, got[0].Channel, "newest first")
	assert.Equal(t, "+254711000111", got[1].Receipt.Recipient)
}

func TestService_ListForUser(t *testing.T) {
	env := testutil.NewEnv(t)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	other := env.CreateUser(t, "other", access.RoleLearner)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	staff := env.CreateUser(t, "staff", access.RoleStaff)
	admin := env.CreateUser(t, "admin", access.RoleAdmin)

	tests := []struct {
		name     string
		actor    access.Actor
		wantKind core.ErrorKind
	}{
		{name: "self", actor: learner.Actor()},
		{name: "staff", actor: staff.Actor()},
		{name: "admin", actor: admin.Actor()},
		{name: "tutor", actor: tutor.Actor(), wantKind: core.KindForbidden},
		{name: "another learner", actor: other.Actor(), wantKind: core.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Notifications.ListForUser(context.Background(), tt.actor, learner.ID)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
		})
	}
}
