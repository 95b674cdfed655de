package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/user"
	logsvc "github.com/trezcool/educator/services/logger"
	"github.com/trezcool/educator/storage/database"
	sqlxrepos "github.com/trezcool/educator/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN"), conf)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(conf, logger)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))

	// start CLI
	cli := commandLine{
		db:       db,
		users:    usrSvc,
		validate: validate,
		exams:    examServiceLoader(db, usrSvc, logger),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}

// examServiceLoader defers loading the grade table until a command needs it, so migrate works on an empty database.
func examServiceLoader(db *sqlx.DB, users *user.Service, logger core.Logger) func() (*exam.Service, error) {
	return func() (*exam.Service, error) {
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
		return exam.NewService(db, repos, users, access.NewDefaultGate(), grades, logger), nil
	}
}
