package chat

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryLatestMessages returns at most limit messages of the course, newest first.
		QueryLatestMessages(ctx context.Context, courseID, limit int) ([]Message, error)
	}

	Service interface {
		Post(ctx context.Context, courseID int, sess *user.Session, text string) (Message, bool, error)
		ListRecent(ctx context.Context, courseID, limit int) ([]Message, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Post appends a message to the course chat. Blank text is dropped and reported with false.
func (svc *service) Post(ctx context.Context, courseID int, sess *user.Session, text string) (Message, bool, error) {
	if !sess.IsLoggedIn() {
		return Message{}, false, core.ErrPermissionDenied
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false, nil
	}

	m, err := svc.repo.CreateMessage(ctx, Message{
		CourseID:  courseID,
		UserID:    sess.UserID,
		UserName:  sess.Name,
		UserRole:  sess.Role,
		Message:   text,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return Message{}, false, errors.Wrap(err, "posting message")
	}
	return m, true, nil
}

// ListRecent returns the latest limit messages, oldest first.
func (svc *service) ListRecent(ctx context.Context, courseID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	msgs, err := svc.repo.QueryLatestMessages(ctx, courseID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
