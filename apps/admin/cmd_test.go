package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/dummy"
	"github.com/trezcool/elimu/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Services) {
	svcs := testutil.NewServices()
	t.Cleanup(svcs.Reset)

	return &commandLine{
		usrRepo:     svcs.UserRepo,
		enrollments: svcs.Enrollments,
		xp:          svcs.XP,
		out:         new(bytes.Buffer),
	}, svcs
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.pwd), nil }

			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			if check != nil {
				check(t, tt)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate without command", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"recalcprogress", "-lol"}, wantErr: errHelp},
	}, nil)
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCmd string
	var gotArgs []string
	migrateFunc = func(_ *sqlx.DB, command string, args ...string) error {
		gotCmd, gotArgs = command, args
		return nil
	}

	require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
	assert.Equal(t, "up", gotCmd)
	assert.Empty(t, gotArgs)

	require.NoError(t, cli.run([]string{"admin", "migrate", "up-to", "2"}))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, []string{"2"}, gotArgs)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, svcs := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, svcs.UserRepo, "Existing", "existing", "existing@test.cd", "oldPassw0rd!", []string{user.RoleStudent}, false)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email missing", args: []string{"adduser", "-username", "newbie"}, pwd: "pwd", wantErr: errHelp},
		{name: "password missing", args: []string{"adduser", "-username", "newbie", "-email", "newbie@test.cd"}, wantErr: errHelp},
	}, nil)

	t.Run("create", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("newPassw0rd!"), nil }
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", " Newbie ", "-email", "NEWBIE@test.cd"}))

		usr, err := svcs.UserRepo.GetUser(ctx, user.GetFilter{Username: "newbie"})
		require.NoError(t, err)
		assert.Equal(t, "newbie", usr.Name)
		assert.Equal(t, "newbie@test.cd", usr.Email)
		assert.True(t, usr.IsActive)
		assert.True(t, usr.IsStudent())
		assert.False(t, usr.IsAdmin())
		assert.NoError(t, usr.CheckPassword("newPassw0rd!"))
	})

	t.Run("update as admin", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("newPassw0rd!"), nil }
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "existing", "-email", "existing@test.cd", "-name", "Boss", "-admin"}))

		usr, err := svcs.UserRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
		require.NoError(t, err)
		assert.Equal(t, "Boss", usr.Name)
		assert.True(t, usr.IsActive)
		assert.True(t, usr.IsAdmin())
		assert.NoError(t, usr.CheckPassword("newPassw0rd!"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, svcs := setup(t)
	usr := testutil.CreateUser(t, svcs.UserRepo, "User", "awesome", "awe@test.cd", "mdr", nil, true)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, pwd: "lmao"},
	}, func(t *testing.T, tt cliTest) {
		refreshed, err := svcs.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.NoError(t, refreshed.CheckPassword(tt.pwd))
	})
}

func Test_commandLine_recalcProgress(t *testing.T) {
	cli, svcs := setup(t)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, svcs.UserRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleInstructor}, true)
	student := testutil.CreateUser(t, svcs.UserRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)

	crs, err := svcs.Courses.CreateCourse(ctx, instructor, course.NewCourse{Title: "Go 101", IsPublished: true})
	require.NoError(t, err)
	ch, err := svcs.Courses.AddChapter(ctx, instructor, crs.ID, course.NewChapter{Title: "Basics"})
	require.NoError(t, err)
	addText := func(title string) course.ContentUnit {
		unit, err := svcs.Courses.AddContentUnit(ctx, instructor, crs.ID, course.NewContentUnit{
			ChapterID: ch.ID,
			Kind:      course.KindText,
			Title:     title,
			Body:      "Some text.",
		})
		require.NoError(t, err)
		return unit
	}
	first := addText("One")
	addText("Two")

	_, err = svcs.Enrollments.Enroll(ctx, student.ID, crs.ID, "")
	require.NoError(t, err)
	enr, err := svcs.Enrollments.CompleteUnit(ctx, student.ID, crs.ID, first.ID)
	require.NoError(t, err)
	require.Equal(t, 50, enr.Progress)

	addText("Three")

	runCLITests(t, cli, []cliTest{
		{name: "course missing", args: []string{"recalcprogress"}, wantErr: errHelp},
		{name: "unknown course", args: []string{"recalcprogress", "-course", "unknown"}, wantErr: course.ErrNotFound},
		{name: "recalculate", args: []string{"recalcprogress", "-course", crs.ID}},
	}, func(t *testing.T, _ cliTest) {
		got, err := svcs.Enrollments.Get(ctx, student.ID, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.Percentage(1, 3), got.Progress)
	})
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1 enrollment(s) updated")
}

func Test_commandLine_recalcLevels(t *testing.T) {
	cli, svcs := setup(t)
	ctx := context.Background()
	repo := dummydb.NewGamificationRepository(svcs.DB)

	_, err := svcs.XP.Award(ctx, "u1", gamification.Event{Kind: gamification.EventCourseCompleted})
	require.NoError(t, err)
	xp, err := repo.GetUserXP(ctx, "u1")
	require.NoError(t, err)
	xp.Level = 9
	_, err = repo.UpdateUserXP(ctx, xp)
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "recalclevels"}))
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "1 level(s) updated")

	xp, err = repo.GetUserXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, gamification.LevelForXP(xp.TotalXP), xp.Level)
}
