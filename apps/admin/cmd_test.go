package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/apps/shared"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func setup(t *testing.T) (*commandLine, *shared.Repositories, *bytes.Buffer) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	testutil.LoadEmailTemplates(logger)

	db := dummydb.Open()
	repos := &shared.Repositories{
		User:       dummydb.NewUserRepository(db),
		Course:     dummydb.NewCourseRepository(db),
		Assignment: dummydb.NewAssignmentRepository(db),
		Progress:   dummydb.NewProgressRepository(db),
		Calendar:   dummydb.NewCalendarRepository(db),
		Chat:       dummydb.NewChatRepository(db),
	}

	var out bytes.Buffer
	cli := newCommandLine(nil, repos, emailsvc.NewConsoleServiceMock(conf, logger), conf)
	cli.out = &out

	origRead := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origRead })
	return cli, repos, &out
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func checkRun(t *testing.T, cli *commandLine, tt cliTest) {
	mockPassword(tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(_ *sqlx.DB, command string, args ...string) error {
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
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "reminders", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, repos, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Ann", "-email", "ann@test.cd"}, wantErr: errHelp},
		{
			name:       "bad role",
			args:       []string{"adduser", "-name", "Ann", "-email", "ann@test.cd", "-role", "admin"},
			pwd:        "Sup3rS3cret!",
			wantErrStr: `invalid role "admin"`,
		},
		{name: "create", args: []string{"adduser", "-name", "Ann", "-email", "Ann@Test.cd", "-role", "teacher"}, pwd: "Sup3rS3cret!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}

	usr, err := repos.User.GetUserByEmail(context.Background(), "ann@test.cd")
	require.NoError(t, err)
	assert.Equal(t, "Ann", usr.Name)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.NoError(t, usr.CheckPassword("Sup3rS3cret!"))

	t.Run("existing user gets a new password", func(t *testing.T) {
		out.Reset()
		checkRun(t, cli, cliTest{args: []string{"adduser", "-name", "Ann", "-email", "ann@test.cd"}, pwd: "An0therS3cret"})
		assert.Contains(t, out.String(), "password updated")

		refreshed, err := repos.User.GetUserByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.NoError(t, refreshed.CheckPassword("An0therS3cret"))
		assert.Equal(t, user.RoleTeacher, refreshed.Role)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repos, _ := setup(t)
	usr := testutil.CreateUser(t, repos.User, "Awe", "awe@test.cd", "mdr", user.RoleStudent)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", " AWE@test.cd "}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}

	refreshed, err := repos.User.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash))
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_calendarJobs(t *testing.T) {
	cli, repos, out := setup(t)
	teacher := testutil.CreateUser(t, repos.User, "Teach", "teach@test.cd", "pwd", user.RoleTeacher)
	c := testutil.CreateCourse(t, repos.Course, "Go", teacher)
	testutil.CreateAssignment(t, repos.Assignment, c, "Essay", time.Now().UTC().Add(24*time.Hour))

	checkRun(t, cli, cliTest{args: []string{"syncassignments"}})
	assert.Equal(t, "1 event(s) created\n", out.String())

	out.Reset()
	checkRun(t, cli, cliTest{args: []string{"syncassignments"}})
	assert.Equal(t, "0 event(s) created\n", out.String())

	out.Reset()
	checkRun(t, cli, cliTest{args: []string{"sendreminders"}})
	assert.Equal(t, "0 reminder(s) sent\n", out.String())
}
