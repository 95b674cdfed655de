package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/user"
	testutil "github.com/trezcool/educator/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)

	// start CLI
	cli := &commandLine{
		db:       env.DB,
		users:    env.Users,
		validate: env.Validate,
		exams:    func() (*exam.Service, error) { return env.Exams, nil },
	}
	return cli, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if pwd, ok := tt.extra.(string); ok {
				return []byte(pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	runCLITests(t, cli, tests, nil)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	env.CreateUser(t, "taken", "tutor")

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing role", args: []string{"adduser", "-username", "amani", "-email", "amani@example.com"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "amani", "-email", "amani@example.com", "-role", "tutor"}, wantErr: errHelp},
		{
			name:       "unknown role",
			args:       []string{"adduser", "-username", "amani", "-email", "amani@example.com", "-role", "janitor"},
			extra:      "Qu1z!Master",
			wantErrStr: "failed on the 'userrole' tag",
		},
		{
			name:       "weak password",
			args:       []string{"adduser", "-username", "amani", "-email", "amani@example.com", "-role", "tutor"},
			extra:      "12345678",
			wantErrStr: "failed on the",
		},
		{
			name:    "username taken",
			args:    []string{"adduser", "-username", "taken", "-email", "other@example.com", "-role", "tutor"},
			extra:   "Qu1z!Master",
			wantErr: user.ErrUsernameExists,
		},
		{
			name:  "create",
			args:  []string{"adduser", "-username", "Amani", "-email", "amani@example.com", "-phone", "+243810000001", "-role", "tutor"},
			extra: "Qu1z!Master",
		},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		usr, err := env.Users.Authenticate(context.Background(), "amani", tt.extra.(string))
		require.NoError(t, err)
		assert.Equal(t, access.RoleTutor, usr.Role)
		assert.Equal(t, "+243810000001", usr.PhoneNumber)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := env.CreateUser(t, "awe", "learner")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: "lmao"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := env.Users.GetByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "failed to update new password")
		assert.NoError(t, refreshed.CheckPassword(tt.extra.(string)))
	})
}

func Test_commandLine_recompute(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	ex := env.CreateExam(t, tutor, "Geometry")
	q := env.CreateQuestion(t, tutor, ex.ID, 4, "A", "A", "B")

	_, _, err := env.Exams.CreateSubmission(ctx, learner.Actor(), exam.NewSubmission{QuestionID: q.ID, Answer: "A"})
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no exam", args: []string{"recompute"}, wantErr: errHelp},
		{name: "unknown exam", args: []string{"recompute", "-exam", "lol"}, wantErr: exam.ErrExamNotFound},
		{name: "whole exam", args: []string{"recompute", "-exam", ex.ID}},
		{name: "single learner", args: []string{"recompute", "-exam", ex.ID, "-user", learner.ID}},
		{name: "retry stale", args: []string{"retrystale"}},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		perf, err := env.Exams.GetPerformance(ctx, learner.Actor(), learner.ID, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, perf.Percentage)
	})
}
