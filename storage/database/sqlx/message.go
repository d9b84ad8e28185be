package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/message"
)

const messageColumns = `id, sender_id, recipient_id, course_id, subject, body, read_at, created_at`

type messageRow struct {
	ID          string      `db:"id"`
	SenderID    string      `db:"sender_id"`
	RecipientID string      `db:"recipient_id"`
	CourseID    null.String `db:"course_id"`
	Subject     string      `db:"subject"`
	Body        string      `db:"body"`
	ReadAt      null.Time   `db:"read_at"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r messageRow) toMessage() message.Message {
	return message.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		CourseID:    r.CourseID,
		Subject:     r.Subject,
		Body:        r.Body,
		ReadAt:      r.ReadAt,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type messageRepository struct {
	exec core.DBExecutor
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(exec core.DBExecutor) *messageRepository {
	return &messageRepository{exec: exec}
}

func (repo messageRepository) CreateMessages(ctx context.Context, msgs []message.Message, exec ...core.DBExecutor) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]messageRow, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, messageRow{
			ID:          m.ID,
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			CourseID:    m.CourseID,
			Subject:     m.Subject,
			Body:        m.Body,
			ReadAt:      m.ReadAt,
			CreatedAt:   m.CreatedAt.UTC(),
		})
	}

	// batch insert
	q := `INSERT INTO message (` + messageColumns + `)
		VALUES (:id, :sender_id, :recipient_id, :course_id, :subject, :body, :read_at, :created_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, rows); err != nil {
		return errors.Wrap(err, "inserting messages")
	}
	return nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (message.Message, error) {
	if !validID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var row messageRow
	q := `SELECT ` + messageColumns + ` FROM message WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "finding message")
	}
	return row.toMessage(), nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, filter message.QueryFilter, exec ...core.DBExecutor) ([]message.Message, error) {
	exe := core.GetExec(repo.exec, exec)

	w := new(where)
	if filter.RecipientID != "" {
		w.add("recipient_id::text = ?", filter.RecipientID)
	}
	if filter.UnreadOnly {
		w.add("read_at IS NULL")
	}

	var rows []messageRow
	q := exe.Rebind(`SELECT ` + messageColumns + ` FROM message` + w.String() + ` ORDER BY created_at DESC`)
	if err := exe.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}

	msgs := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs, nil
}

func (repo messageRepository) MarkRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (message.Message, error) {
	if !validID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var row messageRow
	q := `UPDATE message SET read_at = COALESCE(read_at, $2) WHERE id = $1 RETURNING ` + messageColumns
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id, at.UTC()); err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "marking message read")
	}
	return row.toMessage(), nil
}
