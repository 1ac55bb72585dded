package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	engine     string
	usrRepo    user.Repository
	courseRepo course.Repository
	gradeRepo  grade.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ADMIN|DOCENTE|ALUMNO] [-code CODE] - create or update a user")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Println("  exportgrades -course CODE -out FILE - write the grade sheet of a course as XLSX")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
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

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. An existing user with this email is updated.")
	addUserRole := addUserCmd.String("role", string(user.RoleAdmin), "The user's role.")
	addUserCode := addUserCmd.String("code", "", "The student code, required for ALUMNO.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	exportGradesCmd := flag.NewFlagSet("exportgrades", flag.ExitOnError)
	exportGradesCourse := exportGradesCmd.String("course", "", "The course code.")
	exportGradesOut := exportGradesCmd.String("out", "", "The XLSX file to write.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, user.Role(*addUserRole), *addUserCode)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "exportgrades":
		if err := exportGradesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportGradesCourse == "" || *exportGradesOut == "" {
			exportGradesCmd.Usage()
			return errHelp
		}
		return cli.exportGrades(*exportGradesCourse, *exportGradesOut)

	default:
		cli.printUsage()
		return errHelp
	}
}
