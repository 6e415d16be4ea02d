package chat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func TestService_Post(t *testing.T) {
	db := dummydb.Open()
	teacher := testutil.CreateUser(t, dummydb.NewUserRepository(db), "Teacher", "teacher@test.com", "", user.RoleTeacher)
	c := testutil.CreateCourse(t, dummydb.NewCourseRepository(db), "Algebra", teacher)
	svc := chat.NewService(dummydb.NewChatRepository(db))
	sess := user.NewSession(teacher)
	ctx := context.Background()

	tests := []struct {
		name     string
		sess     *user.Session
		text     string
		wantPost bool
		wantErr  error
	}{
		{name: "message", sess: sess, text: "  hello class  ", wantPost: true},
		{name: "empty", sess: sess, text: ""},
		{name: "whitespace", sess: sess, text: " \t\n "},
		{name: "anonymous", sess: nil, text: "hi", wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, posted, err := svc.Post(ctx, c.ID, tt.sess, tt.text)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantPost, posted)
			if tt.wantPost {
				assert.Equal(t, "hello class", m.Message)
				assert.Equal(t, "Teacher", m.UserName)
				assert.Equal(t, user.RoleTeacher, m.UserRole)
			}
		})
	}

	msgs, err := svc.ListRecent(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestService_ListRecent(t *testing.T) {
	db := dummydb.Open()
	student := testutil.CreateUser(t, dummydb.NewUserRepository(db), "Student", "student@test.com", "", user.RoleStudent)
	teacher := testutil.CreateUser(t, dummydb.NewUserRepository(db), "Teacher", "teacher@test.com", "", user.RoleTeacher)
	c := testutil.CreateCourse(t, dummydb.NewCourseRepository(db), "Algebra", teacher)
	svc := chat.NewService(dummydb.NewChatRepository(db))
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 1; i <= 150; i++ {
		restore := testutil.MockNow(start.Add(time.Duration(i) * time.Minute))
		_, _, err := svc.Post(ctx, c.ID, user.NewSession(student), fmt.Sprintf("message %d", i))
		restore()
		require.NoError(t, err)
	}

	msgs, err := svc.ListRecent(ctx, c.ID, chat.DefaultLimit)
	require.NoError(t, err)
	require.Len(t, msgs, 100)
	assert.Equal(t, "message 51", msgs[0].Message)
	assert.Equal(t, "message 150", msgs[99].Message)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i-1].CreatedAt.Before(msgs[i].CreatedAt), "not in chronological order at %d", i)
	}

	other, err := svc.ListRecent(ctx, c.ID+1000, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
