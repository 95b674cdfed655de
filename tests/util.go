// Package testutil builds the database, repositories and services used by the package tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/media"
	"github.com/trezcool/educator/core/mentorship"
	"github.com/trezcool/educator/core/notification"
	"github.com/trezcool/educator/core/user"
	emailsvc "github.com/trezcool/educator/services/email"
	logsvc "github.com/trezcool/educator/services/logger"
	smssvc "github.com/trezcool/educator/services/sms"
	"github.com/trezcool/educator/storage/database"
	sqlxrepos "github.com/trezcool/educator/storage/database/sqlx"
	"github.com/trezcool/educator/storage/files"
)

// PrepareDB returns a migrated sqlite database living in the test's temp dir.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", database.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), core.NewTestConfig())
}

// NewValidator returns a validator with every custom tag registered, and the translator of its messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, phone, role, status, pwd string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:    uname,
		Email:       email,
		PhoneNumber: phone,
		Role:        role,
		Status:      status,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Env holds a fully wired set of services on a fresh database.
type Env struct {
	Conf       *core.Config
	DB         *sqlx.DB
	Gate       *access.Gate
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	Email      *emailsvc.ConsoleService
	SMS        *smssvc.ConsoleGateway
	Files      core.FileStore

	UserRepo  user.Repository
	ExamRepos exam.Repositories

	Users         *user.Service
	Exams         *exam.Service
	Notifications *notification.Service
	Mentorships   *mentorship.Service
	Media         *media.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	conf.WorkDir = core.Getwd()
	conf.Files.Root = filepath.Join(t.TempDir(), "media")
	core.ParseEmailTemplates(conf, NewLogger())

	db := PrepareDB(t)
	env := &Env{
		Conf:     conf,
		DB:       db,
		Gate:     access.NewDefaultGate(),
		Logger:   NewLogger(),
		Email:    emailsvc.NewConsoleServiceMock(conf),
		SMS:      smssvc.NewConsoleGateway(nil),
		UserRepo: sqlxrepos.NewUserRepository(db),
		ExamRepos: exam.Repositories{
			Exams:        sqlxrepos.NewExamRepository(db),
			Questions:    sqlxrepos.NewQuestionRepository(db),
			Submissions:  sqlxrepos.NewSubmissionRepository(db),
			Performances: sqlxrepos.NewPerformanceRepository(db),
		},
	}

	env.Validate, env.Translator = NewValidator()

	store, err := files.NewFSStore(conf.Files.Root)
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	env.Files = store

	grades, err := exam.LoadGradeTable(context.Background(), sqlxrepos.NewGradeRepository(db))
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}

	env.Users = user.NewService(env.UserRepo)
	env.Exams = exam.NewService(db, env.ExamRepos, env.Users, env.Gate, grades, env.Logger)
	env.Notifications = notification.NewService(
		conf, sqlxrepos.NewNotificationRepository(db), env.Users, env.SMS, env.Email, env.Gate, env.Logger)
	env.Mentorships = mentorship.NewService(
		db, sqlxrepos.NewMentorshipRepository(db), env.Users, env.Email, env.Gate, env.Logger)
	env.Media = media.NewService(env.Files, env.Gate, env.Logger)
	return env
}

// CreateUser creates an active user with the given role; the password is "p@ssw0rd!".
func (env *Env) CreateUser(t *testing.T, uname, role string, phone ...string) user.User {
	t.Helper()
	var ph string
	if len(phone) > 0 {
		ph = phone[0]
	}
	return CreateUser(t, env.UserRepo, uname, uname+"@example.com", ph, role, user.StatusActive, "p@ssw0rd!")
}

// CreateExam creates an exam owned by tutor.
func (env *Env) CreateExam(t *testing.T, tutor user.User, name string) exam.Exam {
	t.Helper()
	ex, err := env.Exams.CreateExam(context.Background(), tutor.Actor(), exam.NewExam{Name: name})
	if err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return ex
}

// CreateQuestion adds a question to examID; options make it a multiple choice question.
func (env *Env) CreateQuestion(t *testing.T, tutor user.User, examID string, marks int, answer string, options ...string) exam.Question {
	t.Helper()
	q, err := env.Exams.CreateQuestion(context.Background(), tutor.Actor(), exam.NewQuestion{
		ExamID:      examID,
		Text:        "question",
		Marks:       marks,
		MultiChoice: options,
		Answer:      answer,
	})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}
