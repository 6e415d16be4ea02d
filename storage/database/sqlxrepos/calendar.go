package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

const (
	eventColumns = `e.id, e.title, e.description, e.event_type, e.start_datetime, e.end_datetime, e.location,
		e.course_id, c.title AS course_title, c.teacher_id AS course_teacher_id,
		e.created_by, u.name AS creator_name, e.created_at`
	eventJoins  = ` LEFT JOIN courses c ON c.id = e.course_id JOIN users u ON u.id = e.created_by`
	eventSelect = `SELECT ` + eventColumns + ` FROM calendar_events e` + eventJoins

	reminderColumns = `r.id, r.user_id, r.event_id, r.reminder_time, r.is_sent,
		e.title AS event_title, e.start_datetime AS event_start`
)

type eventRow struct {
	ID              int         `db:"id"`
	Title           string      `db:"title"`
	Description     string      `db:"description"`
	EventType       string      `db:"event_type"`
	Start           time.Time   `db:"start_datetime"`
	End             time.Time   `db:"end_datetime"`
	Location        string      `db:"location"`
	CourseID        null.Int    `db:"course_id"`
	CourseTitle     null.String `db:"course_title"`
	CourseTeacherID null.Int    `db:"course_teacher_id"`
	CreatedBy       int         `db:"created_by"`
	CreatorName     string      `db:"creator_name"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r eventRow) unboil() calendar.Event {
	return calendar.Event{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		EventType:       calendar.EventType(r.EventType),
		Start:           r.Start.UTC(),
		End:             r.End.UTC(),
		Location:        r.Location,
		CourseID:        r.CourseID.Ptr(),
		CourseTitle:     r.CourseTitle.String,
		CourseTeacherID: r.CourseTeacherID.Ptr(),
		CreatedBy:       r.CreatedBy,
		CreatorName:     r.CreatorName,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func nullCourseID(id *int) null.Int {
	return null.IntFromPtr(id)
}

type reminderRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	EventID      int       `db:"event_id"`
	ReminderTime time.Time `db:"reminder_time"`
	IsSent       bool      `db:"is_sent"`
	EventTitle   string    `db:"event_title"`
	EventStart   time.Time `db:"event_start"`
}

func (r reminderRow) unboil() calendar.Reminder {
	return calendar.Reminder{
		ID:           r.ID,
		UserID:       r.UserID,
		EventID:      r.EventID,
		ReminderTime: r.ReminderTime.UTC(),
		IsSent:       r.IsSent,
		EventTitle:   r.EventTitle,
		EventStart:   r.EventStart.UTC(),
	}
}

type dueReminderRow struct {
	reminderRow
	UserName      string      `db:"user_name"`
	UserEmail     string      `db:"user_email"`
	EventLocation string      `db:"event_location"`
	CourseTitle   null.String `db:"course_title"`
}

type calendarRepository struct {
	db *sqlx.DB
}

var _ calendar.Repository = (*calendarRepository)(nil)

func NewCalendarRepository(db *sqlx.DB) calendar.Repository {
	return &calendarRepository{db: db}
}

func (repo *calendarRepository) queryEvents(ctx context.Context, q string, args ...interface{}) ([]calendar.Event, error) {
	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]calendar.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.unboil())
	}
	return events, nil
}

func (repo *calendarRepository) CreateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	const q = `
		WITH e AS (
			INSERT INTO calendar_events
				(title, description, event_type, start_datetime, end_datetime, location, course_id, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT ` + eventColumns + ` FROM e` + eventJoins
	var row eventRow
	err := repo.db.GetContext(ctx, &row, q,
		e.Title, e.Description, string(e.EventType), e.Start.UTC(), e.End.UTC(), e.Location,
		nullCourseID(e.CourseID), e.CreatedBy, e.CreatedAt.UTC())
	if err != nil {
		return calendar.Event{}, trapFKErr(err, course.ErrNotFound, "inserting event")
	}
	return row.unboil(), nil
}

func (repo *calendarRepository) CreateEventIfNotExists(ctx context.Context, e calendar.Event) (bool, error) {
	const q = `
		INSERT INTO calendar_events
			(title, description, event_type, start_datetime, end_datetime, location, course_id, created_by, created_at)
		SELECT $1::varchar, $2::text, $3::varchar, $4::timestamptz, $5::timestamptz, $6::varchar, $7::integer, $8::integer, $9::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM calendar_events
			WHERE title = $1::varchar AND event_type = $3::varchar AND course_id IS NOT DISTINCT FROM $7::integer
		)`
	n, err := rowsAffected(repo.db.ExecContext(ctx, q,
		e.Title, e.Description, string(e.EventType), e.Start.UTC(), e.End.UTC(), e.Location,
		nullCourseID(e.CourseID), e.CreatedBy, e.CreatedAt.UTC()))
	if err != nil {
		return false, trapFKErr(err, course.ErrNotFound, "inserting event")
	}
	return n > 0, nil
}

func (repo *calendarRepository) UpdateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	const q = `
		WITH e AS (
			UPDATE calendar_events
			SET title = $2, description = $3, event_type = $4, start_datetime = $5, end_datetime = $6,
				location = $7, course_id = $8
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + eventColumns + ` FROM e` + eventJoins
	var row eventRow
	err := repo.db.GetContext(ctx, &row, q,
		e.ID, e.Title, e.Description, string(e.EventType), e.Start.UTC(), e.End.UTC(), e.Location,
		nullCourseID(e.CourseID))
	if err != nil {
		if pqErrCode(err) == foreignKeyViolation {
			return calendar.Event{}, course.ErrNotFound
		}
		return calendar.Event{}, trapNoRowsErr(err, calendar.ErrNotFound, "updating event")
	}
	return row.unboil(), nil
}

func (repo *calendarRepository) DeleteEvent(ctx context.Context, id int) error {
	n, err := rowsAffected(repo.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id))
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n == 0 {
		return calendar.ErrNotFound
	}
	return nil
}

func (repo *calendarRepository) GetEventByID(ctx context.Context, id int) (calendar.Event, error) {
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, eventSelect+` WHERE e.id = $1`, id); err != nil {
		return calendar.Event{}, trapNoRowsErr(err, calendar.ErrNotFound, "finding event by ID")
	}
	return row.unboil(), nil
}

func (repo *calendarRepository) QueryEvents(ctx context.Context, filter calendar.EventFilter) ([]calendar.Event, error) {
	args := []interface{}{filter.UserID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var where []string
	switch filter.Role {
	case user.RoleTeacher:
		where = append(where, `(e.created_by = $1 OR c.teacher_id = $1)`)
	case user.RoleStudent:
		where = append(where, `e.course_id IN (SELECT course_id FROM enrollments WHERE student_id = $1)`)
	default:
		return make([]calendar.Event, 0), nil
	}

	if filter.Range != nil {
		start, end := arg(filter.Range.Start.UTC()), arg(filter.Range.End.UTC())
		where = append(where, fmt.Sprintf(
			`((e.start_datetime BETWEEN %[1]s AND %[2]s) OR (e.end_datetime BETWEEN %[1]s AND %[2]s)
			OR (e.start_datetime <= %[1]s AND e.end_datetime >= %[2]s))`, start, end))
	}
	if !filter.From.IsZero() {
		where = append(where, `e.start_datetime >= `+arg(filter.From.UTC()))
	}

	q := eventSelect + ` WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY e.start_datetime, e.id`
	if filter.Limit > 0 {
		q += ` LIMIT ` + arg(filter.Limit)
	}
	return repo.queryEvents(ctx, q, args...)
}

func (repo *calendarRepository) QueryEventsByCourse(ctx context.Context, courseID int) ([]calendar.Event, error) {
	return repo.queryEvents(ctx, eventSelect+` WHERE e.course_id = $1 ORDER BY e.start_datetime, e.id`, courseID)
}

func (repo *calendarRepository) CreateReminder(ctx context.Context, r calendar.Reminder) (calendar.Reminder, error) {
	const q = `
		WITH r AS (
			INSERT INTO event_reminders (user_id, event_id, reminder_time, is_sent)
			VALUES ($1, $2, $3, FALSE)
			RETURNING *
		)
		SELECT ` + reminderColumns + ` FROM r JOIN calendar_events e ON e.id = r.event_id`
	var row reminderRow
	if err := repo.db.GetContext(ctx, &row, q, r.UserID, r.EventID, r.ReminderTime.UTC()); err != nil {
		return calendar.Reminder{}, trapFKErr(err, calendar.ErrNotFound, "inserting reminder")
	}
	return row.unboil(), nil
}

func (repo *calendarRepository) QueryActiveReminders(ctx context.Context, userID int, t time.Time) ([]calendar.Reminder, error) {
	const q = `
		SELECT ` + reminderColumns + `
		FROM event_reminders r JOIN calendar_events e ON e.id = r.event_id
		WHERE r.user_id = $1 AND NOT r.is_sent AND r.reminder_time > $2
		ORDER BY r.reminder_time, r.id`
	var rows []reminderRow
	if err := repo.db.SelectContext(ctx, &rows, q, userID, t.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying active reminders")
	}
	reminders := make([]calendar.Reminder, 0, len(rows))
	for _, r := range rows {
		reminders = append(reminders, r.unboil())
	}
	return reminders, nil
}

func (repo *calendarRepository) QueryDueReminders(ctx context.Context, t time.Time) ([]calendar.DueReminder, error) {
	const q = `
		SELECT ` + reminderColumns + `, u.name AS user_name, u.email AS user_email,
			e.location AS event_location, c.title AS course_title
		FROM event_reminders r
		JOIN calendar_events e ON e.id = r.event_id
		JOIN users u ON u.id = r.user_id
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE NOT r.is_sent AND r.reminder_time <= $1
		ORDER BY r.reminder_time, r.id`
	var rows []dueReminderRow
	if err := repo.db.SelectContext(ctx, &rows, q, t.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying due reminders")
	}
	due := make([]calendar.DueReminder, 0, len(rows))
	for _, r := range rows {
		due = append(due, calendar.DueReminder{
			Reminder:      r.unboil(),
			UserName:      r.UserName,
			UserEmail:     r.UserEmail,
			EventLocation: r.EventLocation,
			CourseTitle:   r.CourseTitle.String,
		})
	}
	return due, nil
}

func (repo *calendarRepository) DeleteReminder(ctx context.Context, id, userID int) error {
	n, err := rowsAffected(repo.db.ExecContext(ctx, `DELETE FROM event_reminders WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return errors.Wrap(err, "deleting reminder")
	}
	if n == 0 {
		return calendar.ErrReminderNotFound
	}
	return nil
}

func (repo *calendarRepository) MarkReminderSent(ctx context.Context, id int) error {
	n, err := rowsAffected(repo.db.ExecContext(ctx, `UPDATE event_reminders SET is_sent = TRUE WHERE id = $1`, id))
	if err != nil {
		return errors.Wrap(err, "marking reminder sent")
	}
	if n == 0 {
		return calendar.ErrReminderNotFound
	}
	return nil
}
