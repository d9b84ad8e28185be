package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	progressRecalculator interface {
		RecalculateCourse(ctx context.Context, courseID string) (int, error)
	}

	levelRecalculator interface {
		RecalculateLevels(ctx context.Context) (int, error)
	}

	commandLine struct {
		db          *sqlx.DB
		usrRepo     user.Repository
		enrollments progressRecalculator
		xp          levelRecalculator
		out         io.Writer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, redo...)")
	fmt.Fprintln(cli.out, "  recalcprogress -course COURSE_ID - recompute the progress of every enrollment of a course")
	fmt.Fprintln(cli.out, "  recalclevels - recompute every user's level and badges from their XP")
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	recalcProgressCmd := flag.NewFlagSet("recalcprogress", flag.ContinueOnError)
	recalcProgressCmd.SetOutput(cli.out)
	recalcProgressCourse := recalcProgressCmd.String("course", "", "The ID of the course.")

	ctx := context.Background()

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
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
		return cli.addUser(ctx, *addUserName, *addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
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
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "recalcprogress":
		if err := recalcProgressCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *recalcProgressCourse == "" {
			recalcProgressCmd.Usage()
			return errHelp
		}
		return cli.recalcProgress(ctx, *recalcProgressCourse)

	case "recalclevels":
		return cli.recalcLevels(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}
