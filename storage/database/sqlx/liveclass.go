package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/liveclass"
)

const liveClassColumns = `id, course_id, instructor_id, title, starts_at, duration_minutes,
	provider_meeting_id, join_url, reminder_sent, created_at`

type liveClassRow struct {
	ID                string    `db:"id"`
	CourseID          string    `db:"course_id"`
	InstructorID      string    `db:"instructor_id"`
	Title             string    `db:"title"`
	StartsAt          time.Time `db:"starts_at"`
	DurationMinutes   int       `db:"duration_minutes"`
	ProviderMeetingID string    `db:"provider_meeting_id"`
	JoinURL           string    `db:"join_url"`
	ReminderSent      bool      `db:"reminder_sent"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r liveClassRow) toLiveClass() liveclass.LiveClass {
	return liveclass.LiveClass{
		ID:                r.ID,
		CourseID:          r.CourseID,
		InstructorID:      r.InstructorID,
		Title:             r.Title,
		StartsAt:          r.StartsAt.UTC(),
		DurationMinutes:   r.DurationMinutes,
		ProviderMeetingID: r.ProviderMeetingID,
		JoinURL:           r.JoinURL,
		ReminderSent:      r.ReminderSent,
		CreatedAt:         r.CreatedAt.UTC(),
	}
}

type liveClassRepository struct {
	exec core.DBExecutor
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(exec core.DBExecutor) *liveClassRepository {
	return &liveClassRepository{exec: exec}
}

func (repo liveClassRepository) CreateLiveClass(ctx context.Context, lc liveclass.LiveClass, exec ...core.DBExecutor) (liveclass.LiveClass, error) {
	row := liveClassRow{
		ID:                lc.ID,
		CourseID:          lc.CourseID,
		InstructorID:      lc.InstructorID,
		Title:             lc.Title,
		StartsAt:          lc.StartsAt.UTC(),
		DurationMinutes:   lc.DurationMinutes,
		ProviderMeetingID: lc.ProviderMeetingID,
		JoinURL:           lc.JoinURL,
		ReminderSent:      lc.ReminderSent,
		CreatedAt:         lc.CreatedAt.UTC(),
	}
	q := `INSERT INTO live_class (` + liveClassColumns + `)
		VALUES (:id, :course_id, :instructor_id, :title, :starts_at, :duration_minutes,
			:provider_meeting_id, :join_url, :reminder_sent, :created_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, row); err != nil {
		return liveclass.LiveClass{}, errors.Wrap(err, "inserting live class")
	}
	return lc, nil
}

func (repo liveClassRepository) GetLiveClass(ctx context.Context, id string, exec ...core.DBExecutor) (liveclass.LiveClass, error) {
	if !validID(id) {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}
	var row liveClassRow
	q := `SELECT ` + liveClassColumns + ` FROM live_class WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return liveclass.LiveClass{}, liveclass.ErrNotFound
		}
		return liveclass.LiveClass{}, errors.Wrap(err, "finding live class")
	}
	return row.toLiveClass(), nil
}

func (repo liveClassRepository) QueryLiveClasses(ctx context.Context, filter liveclass.QueryFilter, exec ...core.DBExecutor) ([]liveclass.LiveClass, error) {
	exe := core.GetExec(repo.exec, exec)

	w := new(where)
	if filter.CourseID != "" {
		w.add("course_id::text = ?", filter.CourseID)
	}
	if !filter.StartsFrom.IsZero() {
		w.add("starts_at >= ?", filter.StartsFrom.UTC())
	}
	if !filter.StartsTo.IsZero() {
		w.add("starts_at <= ?", filter.StartsTo.UTC())
	}
	if filter.ReminderSent != nil {
		w.add("reminder_sent = ?", *filter.ReminderSent)
	}

	var rows []liveClassRow
	q := exe.Rebind(`SELECT ` + liveClassColumns + ` FROM live_class` + w.String() + ` ORDER BY starts_at`)
	if err := exe.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying live classes")
	}

	classes := make([]liveclass.LiveClass, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toLiveClass())
	}
	return classes, nil
}

func (repo liveClassRepository) DeleteLiveClass(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return liveclass.ErrNotFound
	}
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM live_class WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting live class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return liveclass.ErrNotFound
	}
	return nil
}

func (repo liveClassRepository) MarkReminderSent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := core.GetExec(repo.exec, exec).ExecContext(ctx, `UPDATE live_class SET reminder_sent = true WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "marking reminder sent")
	}
	return nil
}
