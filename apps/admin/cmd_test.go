package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/user"
	emailsvc "github.com/tahanan-ph/tahanan/services/email"
	dummydb "github.com/tahanan-ph/tahanan/storage/database/dummy"
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	conf := &core.Config{AppName: "Tahanan", SecretKey: "secret"}
	return &commandLine{
		usrSvc: user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf), conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest, onSuccess func(t *testing.T)) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
				}
				if onSuccess != nil {
					onSuccess(t)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %q, wantErrStr %q", err.Error(), tt.wantErrStr)
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_createSuperuser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"createsuperuser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"createsuperuser", "-username", "bigboss"}, wantErr: errHelp},
		{name: "no password", args: []string{"createsuperuser", "-username", "bigboss", "-email", "boss@test.test"}, wantErr: errPasswordMissing},
		{name: "created", args: []string{"createsuperuser", "-username", "bigboss", "-email", "boss@test.test"}, pwd: "lol"},
		{name: "duplicate username", args: []string{"createsuperuser", "-username", "bigboss", "-email", "boss2@test.test"}, pwd: "lol", wantErrStr: user.ErrUsernameExists.Error()},
	}
	runCliTests(t, cli, tests, func(t *testing.T) {
		usr, err := cli.usrSvc.GetByUsername(context.Background(), "bigboss")
		if err != nil {
			t.Fatalf("GetByUsername(): %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("roles = %v; want an admin role", usr.Roles)
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:            "User",
		Username:        "awe",
		Email:           "awe@test.test",
		Password:        "mdr",
		PasswordConfirm: "mdr",
	})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errPasswordMissing},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	runCliTests(t, cli, tests, func(t *testing.T) {
		refreshed, err := cli.usrSvc.GetByID(context.Background(), usr.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
			t.Error("failed to update new password")
		}
	})
}
