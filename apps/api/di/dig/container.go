// Package dig_container wires the API process together with go.uber.org/dig.
package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/educator/apps/api/echo"
	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/media"
	"github.com/trezcool/educator/core/mentorship"
	"github.com/trezcool/educator/core/notification"
	"github.com/trezcool/educator/core/user"
	emailsvc "github.com/trezcool/educator/services/email"
	logsvc "github.com/trezcool/educator/services/logger"
	"github.com/trezcool/educator/services/scheduler"
	smssvc "github.com/trezcool/educator/services/sms"
	"github.com/trezcool/educator/storage/database"
	sqlxrepos "github.com/trezcool/educator/storage/database/sqlx"
	"github.com/trezcool/educator/storage/files"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParam struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Users         *user.Service
	Exams         *exam.Service
	Notifications *notification.Service
	Mentorships   *mentorship.Service
	Media         *media.Service
}

func newRollbarLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger("API"), conf)
}

func newLogger(l *logsvc.RollbarLogger) core.Logger { return l }

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB"), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	exam.InitValidators(validate, translator)
	return validate
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logsvc.NewStdLogger("EMAIL"))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newSMSGateway(conf *core.Config) (core.SMSGateway, error) {
	return smssvc.New(conf.SMS, logsvc.NewStdLogger("SMS"))
}

func newFileStore(conf *core.Config) (core.FileStore, error) {
	return files.New(conf.Files)
}

func newUserService(db *sqlx.DB) *user.Service {
	return user.NewService(sqlxrepos.NewUserRepository(db))
}

func newExamService(db *sqlx.DB, users *user.Service, gate *access.Gate, logger core.Logger) (*exam.Service, error) {
	grades, err := exam.LoadGradeTable(context.Background(), sqlxrepos.NewGradeRepository(db))
	if err != nil {
		return nil, errors.Wrap(err, "loading grade table")
	}
	repos := exam.Repositories{
		Exams:        sqlxrepos.NewExamRepository(db),
		Questions:    sqlxrepos.NewQuestionRepository(db),
		Submissions:  sqlxrepos.NewSubmissionRepository(db),
		Performances: sqlxrepos.NewPerformanceRepository(db),
	}
	return exam.NewService(db, repos, users, gate, grades, logger), nil
}

func newNotificationService(
	conf *core.Config,
	db *sqlx.DB,
	users *user.Service,
	sms core.SMSGateway,
	mail core.EmailService,
	gate *access.Gate,
	logger core.Logger,
) *notification.Service {
	return notification.NewService(conf, sqlxrepos.NewNotificationRepository(db), users, sms, mail, gate, logger)
}

func newMentorshipService(
	db *sqlx.DB,
	users *user.Service,
	mail core.EmailService,
	gate *access.Gate,
	logger core.Logger,
) *mentorship.Service {
	return mentorship.NewService(db, sqlxrepos.NewMentorshipRepository(db), users, mail, gate, logger)
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, p.Validate, p.Translator, echoapi.Deps{
		Users:         p.Users,
		Exams:         p.Exams,
		Notifications: p.Notifications,
		Mentorships:   p.Mentorships,
		Media:         p.Media,
	})
}

func newScheduler(conf *core.Config, exams *exam.Service, logger core.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, exams, logger)
}

type NewConfigFunc func() *core.Config

// New returns a new dependency injection dig.Container
func New(newConfig ...NewConfigFunc) *dig.Container {
	c := dig.New()

	confFn := core.NewConfig
	if len(newConfig) > 0 {
		confFn = newConfig[0]
	}

	must(c.Provide(confFn))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailService))
	must(c.Provide(newSMSGateway))
	must(c.Provide(newFileStore))
	must(c.Provide(access.NewDefaultGate))
	must(c.Provide(newUserService))
	must(c.Provide(newExamService))
	must(c.Provide(newNotificationService))
	must(c.Provide(newMentorshipService))
	must(c.Provide(media.NewService))
	must(c.Provide(newServer))
	must(c.Provide(newScheduler))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
