package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/user"
	"github.com/trezcool/educator/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	users    *user.Service
	validate *validator.Validate
	exams    func() (*exam.Service, error)
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                                   - run a goose command (up, down, status, redo, version, ...)")
	fmt.Println("  adduser -username USERNAME -email EMAIL -role ROLE [-phone PHONE] - create a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL                  - reset user's password")
	fmt.Println("  recompute -exam EXAM_ID [-user USER_ID]                 - recompute exam performances")
	fmt.Println("  retrystale                                              - recompute the performances flagged as stale")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserPhone := addUserCmd.String("phone", "", "The user's phone number, in international format.")
	addUserRole := addUserCmd.String("role", "", "One of tutor, learner, staff, admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	recomputeCmd := flag.NewFlagSet("recompute", flag.ContinueOnError)
	recomputeExam := recomputeCmd.String("exam", "", "The exam ID.")
	recomputeUser := recomputeCmd.String("user", "", "Only recompute this learner's performance.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserPhone, *addUserRole, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "recompute":
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recomputeExam == "" {
			recomputeCmd.Usage()
			return errHelp
		}
		return cli.recompute(*recomputeExam, *recomputeUser)
	case "retrystale":
		return cli.retryStale()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	return string(pwd), err
}
