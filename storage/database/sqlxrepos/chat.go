package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type messageRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	UserID    int       `db:"user_id"`
	UserName  string    `db:"user_name"`
	UserRole  string    `db:"user_role"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

func (r messageRow) unboil() chat.Message {
	return chat.Message{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		UserRole:  user.Role(r.UserRole),
		Message:   r.Message,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	const q = `
		INSERT INTO chat_messages (course_id, user_id, user_name, user_role, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`
	var row messageRow
	err := repo.db.GetContext(ctx, &row, q, m.CourseID, m.UserID, m.UserName, string(m.UserRole), m.Message, m.CreatedAt.UTC())
	if err != nil {
		return chat.Message{}, trapFKErr(err, course.ErrNotFound, "inserting chat message")
	}
	return row.unboil(), nil
}

func (repo *chatRepository) QueryLatestMessages(ctx context.Context, courseID, limit int) ([]chat.Message, error) {
	const q = `
		SELECT * FROM chat_messages
		WHERE course_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, q, courseID, limit); err != nil {
		return nil, errors.Wrap(err, "querying chat messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.unboil())
	}
	return msgs, nil
}
