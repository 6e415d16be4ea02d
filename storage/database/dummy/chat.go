package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
)

type chatRepository struct {
	db *DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[m.CourseID]; !ok {
		return chat.Message{}, course.ErrNotFound
	}
	m.ID = repo.db.nextID()
	repo.db.messages[m.ID] = &m
	return m, nil
}

func (repo *chatRepository) QueryLatestMessages(_ context.Context, courseID, limit int) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.messages {
		if m.CourseID == courseID {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID > msgs[j].ID
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
