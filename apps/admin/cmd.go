package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/tahanan-ph/tahanan/core/user"
	"github.com/tahanan-ph/tahanan/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp            = errors.New("help provided")
	errPasswordMatch   = errors.New("passwords do not match")
	errPasswordMissing = errors.New("password is required")
)

type commandLine struct {
	db     *sqlx.DB
	usrSvc *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply all pending database migrations")
	fmt.Println("  createsuperuser -username USERNAME -email EMAIL - create an admin owner account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperuserCmd := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	createSuperuserUname := createSuperuserCmd.String("username", "", "The account's username. The password will be prompted next.")
	createSuperuserEmail := createSuperuserCmd.String("email", "", "The account's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		return database.Migrate(cli.db.DB)
	case "createsuperuser":
		if err := createSuperuserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperuserUname == "" || *createSuperuserEmail == "" {
			createSuperuserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(true /* confirm */)
		if err != nil {
			return err
		}
		return cli.createSuperuser(*createSuperuserUname, *createSuperuserEmail, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(false)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(confirm bool) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errPasswordMissing
	}
	if confirm {
		fmt.Print("Confirm password:")
		pwd2, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if string(pwd) != string(pwd2) {
			return "", errPasswordMatch
		}
	}
	return string(pwd), nil
}

func (cli *commandLine) createSuperuser(uname, email, pwd string) error {
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Username:        uname,
		Email:           email,
		Roles:           []string{user.RoleAdminOwner},
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return err
	}
	fmt.Printf("superuser %q created\n", usr.Username)
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		Password:        pwd,
		PasswordConfirm: pwd,
	}); err != nil {
		return err
	}
	fmt.Printf("password reset for %q\n", usr.Username)
	return nil
}
