package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessages(_ context.Context, msgs []message.Message, _ ...core.DBExecutor) error {
	repo.db.message.Lock()
	defer repo.db.message.Unlock()

	for i := range msgs {
		m := msgs[i]
		repo.db.message.messages[m.ID] = &m
	}
	return nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id string, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.message.RLock()
	defer repo.db.message.RUnlock()

	if m, ok := repo.db.message.messages[id]; ok {
		return *m, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) QueryMessages(_ context.Context, filter message.QueryFilter, _ ...core.DBExecutor) ([]message.Message, error) {
	repo.db.message.RLock()
	defer repo.db.message.RUnlock()

	msgs := make([]message.Message, 0)
	for _, m := range repo.db.message.messages {
		if filter.RecipientID != "" && m.RecipientID != filter.RecipientID {
			continue
		}
		if filter.UnreadOnly && m.ReadAt.Valid {
			continue
		}
		msgs = append(msgs, *m)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	return msgs, nil
}

func (repo *messageRepository) MarkRead(_ context.Context, id string, at time.Time, _ ...core.DBExecutor) (message.Message, error) {
	repo.db.message.Lock()
	defer repo.db.message.Unlock()

	m, ok := repo.db.message.messages[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	if !m.ReadAt.Valid {
		m.ReadAt.SetValid(at.UTC())
	}
	return *m, nil
}
