package calendar

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotFound         = core.NewNotFoundError("event")
	ErrReminderNotFound = core.NewNotFoundError("reminder")

	errCourseRequired = "students must pick one of their courses"
	errReminderPassed = "the reminder time has already passed"
)

const (
	minYear = 2000
	maxYear = 2100

	DefaultUpcomingLimit = 5
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		// CreateEventIfNotExists inserts e unless an event with the same title, course and type exists.
		CreateEventIfNotExists(ctx context.Context, e Event) (bool, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, id int) error
		// GetEventByID returns the event with its course title and course teacher.
		GetEventByID(ctx context.Context, id int) (Event, error)
		// QueryEvents lists the events visible per filter, earliest start first.
		QueryEvents(ctx context.Context, filter EventFilter) ([]Event, error)
		QueryEventsByCourse(ctx context.Context, courseID int) ([]Event, error)

		CreateReminder(ctx context.Context, r Reminder) (Reminder, error)
		// QueryActiveReminders lists the unsent reminders of the user due after t, earliest first.
		QueryActiveReminders(ctx context.Context, userID int, t time.Time) ([]Reminder, error)
		// QueryDueReminders lists every unsent reminder due at or before t.
		QueryDueReminders(ctx context.Context, t time.Time) ([]DueReminder, error)
		DeleteReminder(ctx context.Context, id, userID int) error
		MarkReminderSent(ctx context.Context, id int) error
	}

	// CourseAccess is what the calendar needs from the course registry.
	CourseAccess interface {
		GetByID(ctx context.Context, id int) (course.Course, error)
		IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
	}

	// AssignmentLister is what the calendar needs from the assignment ledger.
	AssignmentLister interface {
		ListAll(ctx context.Context) ([]assignment.Assignment, error)
	}

	Service interface {
		CreateEvent(ctx context.Context, sess *user.Session, ef EventForm) (Event, error)
		UpdateEvent(ctx context.Context, sess *user.Session, id int, ef EventForm) (Event, error)
		DeleteEvent(ctx context.Context, sess *user.Session, id int) error
		GetEvent(ctx context.Context, sess *user.Session, id int) (Event, error)
		EventsForUser(ctx context.Context, sess *user.Session, rng *DateRange) ([]Event, error)
		EventsForMonth(ctx context.Context, sess *user.Session, year, month int) (Month, []Event, error)
		EventsByCourse(ctx context.Context, courseID int) ([]Event, error)
		UpcomingEvents(ctx context.Context, sess *user.Session, limit int) ([]Event, error)

		CreateReminder(ctx context.Context, sess *user.Session, eventID int, rf ReminderForm) (Reminder, error)
		ActiveReminders(ctx context.Context, userID int) ([]Reminder, error)
		DeleteReminder(ctx context.Context, sess *user.Session, id int) error
		MarkReminderSent(ctx context.Context, id int) error
		DispatchDueReminders(ctx context.Context) (int, error)

		SyncAssignmentsToCalendar(ctx context.Context) (int, error)
	}

	service struct {
		repo        Repository
		courses     CourseAccess
		assignments AssignmentLister
		mailSvc     core.EmailService
		syncMu      sync.Mutex
	}
)

// Month is a validated calendar month with its first and last instants.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Range DateRange  `json:"-"`
}

var _ Service = (*service)(nil)

func NewService(repo Repository, courses CourseAccess, assignments AssignmentLister, mailSvc core.EmailService) Service {
	return &service{
		repo:        repo,
		courses:     courses,
		assignments: assignments,
		mailSvc:     mailSvc,
	}
}

// NewMonth clamps year to [2000, 2100] and month to [1, 12], falling back to the current ones.
func NewMonth(year, month int, today time.Time) Month {
	if year < minYear || year > maxYear {
		year = today.Year()
	}
	if month < 1 || month > 12 {
		month = int(today.Month())
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	n := now.With(first)
	return Month{
		Year:  year,
		Month: time.Month(month),
		Range: DateRange{Start: n.BeginningOfMonth(), End: n.EndOfMonth()},
	}
}

// checkCourse makes sure the session may attach an event to the course.
func (svc *service) checkCourse(ctx context.Context, sess *user.Session, courseID *int) error {
	if courseID == nil {
		if sess.IsStudent() {
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: errCourseRequired})
		}
		return nil
	}
	c, err := svc.courses.GetByID(ctx, *courseID)
	if err != nil {
		return err
	}
	switch {
	case sess.IsTeacher():
		if c.TeacherID == sess.UserID {
			return nil
		}
	case sess.IsStudent():
		enrolled, err := svc.courses.IsEnrolled(ctx, sess.UserID, c.ID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return nil
		}
	}
	return core.ErrPermissionDenied
}

// canView: the creator; a teacher of the event's course; a student enrolled in it.
func (svc *service) canView(ctx context.Context, sess *user.Session, e Event) (bool, error) {
	if sess.Is(e.CreatedBy) {
		return true, nil
	}
	switch {
	case sess.IsTeacher():
		return e.CourseTeacherID != nil && *e.CourseTeacherID == sess.UserID, nil
	case sess.IsStudent():
		if e.CourseID == nil {
			return false, nil
		}
		enrolled, err := svc.courses.IsEnrolled(ctx, sess.UserID, *e.CourseID)
		return enrolled, errors.Wrap(err, "checking enrollment")
	}
	return false, nil
}

// canModify: the creator, or a teacher of the event's course.
func (svc *service) canModify(sess *user.Session, e Event) bool {
	if sess.Is(e.CreatedBy) {
		return true
	}
	return sess.IsTeacher() && e.CourseTeacherID != nil && *e.CourseTeacherID == sess.UserID
}

func (svc *service) CreateEvent(ctx context.Context, sess *user.Session, ef EventForm) (Event, error) {
	if err := svc.checkCourse(ctx, sess, ef.CourseID); err != nil {
		return Event{}, err
	}
	e, err := svc.repo.CreateEvent(ctx, Event{
		Title:       ef.Title,
		Description: ef.Description,
		EventType:   ef.EventType,
		Start:       ef.start,
		End:         ef.end,
		Location:    ef.Location,
		CourseID:    ef.CourseID,
		CreatedBy:   sess.UserID,
		CreatedAt:   core.NowFunc(),
	})
	return e, errors.Wrap(err, "creating event")
}

func (svc *service) UpdateEvent(ctx context.Context, sess *user.Session, id int, ef EventForm) (Event, error) {
	e, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !svc.canModify(sess, e) {
		return Event{}, core.ErrPermissionDenied
	}
	if (ef.CourseID != nil && !e.InCourse(*ef.CourseID)) || (ef.CourseID == nil && e.CourseID != nil) {
		if err = svc.checkCourse(ctx, sess, ef.CourseID); err != nil {
			return Event{}, err
		}
	}

	e.Title = ef.Title
	e.Description = ef.Description
	e.EventType = ef.EventType
	e.Start = ef.start
	e.End = ef.end
	e.Location = ef.Location
	e.CourseID = ef.CourseID
	e, err = svc.repo.UpdateEvent(ctx, e)
	return e, errors.Wrap(err, "updating event")
}

func (svc *service) DeleteEvent(ctx context.Context, sess *user.Session, id int) error {
	e, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if !svc.canModify(sess, e) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) GetEvent(ctx context.Context, sess *user.Session, id int) (Event, error) {
	e, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	ok, err := svc.canView(ctx, sess, e)
	if err != nil {
		return Event{}, err
	}
	if !ok {
		return Event{}, core.ErrPermissionDenied
	}
	return e, nil
}

func (svc *service) EventsForUser(ctx context.Context, sess *user.Session, rng *DateRange) ([]Event, error) {
	if !sess.IsLoggedIn() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryEvents(ctx, EventFilter{UserID: sess.UserID, Role: sess.Role, Range: rng})
}

func (svc *service) EventsForMonth(ctx context.Context, sess *user.Session, year, month int) (Month, []Event, error) {
	m := NewMonth(year, month, core.NowFunc())
	events, err := svc.EventsForUser(ctx, sess, &m.Range)
	return m, events, err
}

func (svc *service) EventsByCourse(ctx context.Context, courseID int) ([]Event, error) {
	return svc.repo.QueryEventsByCourse(ctx, courseID)
}

func (svc *service) UpcomingEvents(ctx context.Context, sess *user.Session, limit int) ([]Event, error) {
	if !sess.IsLoggedIn() {
		return nil, core.ErrPermissionDenied
	}
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	return svc.repo.QueryEvents(ctx, EventFilter{
		UserID: sess.UserID,
		Role:   sess.Role,
		From:   core.NowFunc(),
		Limit:  limit,
	})
}

// CreateReminder schedules a reminder rf.Offset() before the event start.
func (svc *service) CreateReminder(ctx context.Context, sess *user.Session, eventID int, rf ReminderForm) (Reminder, error) {
	e, err := svc.GetEvent(ctx, sess, eventID)
	if err != nil {
		return Reminder{}, err
	}
	at := e.Start.Add(-rf.Offset())
	if !at.After(core.NowFunc()) {
		return Reminder{}, core.NewValidationError(nil, core.FieldError{Field: "reminder_days", Error: errReminderPassed})
	}
	r, err := svc.repo.CreateReminder(ctx, Reminder{
		UserID:       sess.UserID,
		EventID:      e.ID,
		ReminderTime: at,
		EventTitle:   e.Title,
		EventStart:   e.Start,
	})
	return r, errors.Wrap(err, "creating reminder")
}

func (svc *service) ActiveReminders(ctx context.Context, userID int) ([]Reminder, error) {
	return svc.repo.QueryActiveReminders(ctx, userID, core.NowFunc())
}

func (svc *service) DeleteReminder(ctx context.Context, sess *user.Session, id int) error {
	if !sess.IsLoggedIn() {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteReminder(ctx, id, sess.UserID)
}

func (svc *service) MarkReminderSent(ctx context.Context, id int) error {
	return svc.repo.MarkReminderSent(ctx, id)
}

// DispatchDueReminders e-mails every due reminder and marks it sent. It returns how many went out.
// Messages are handed to the EmailService, which delivers them in the background and logs
// delivery failures; a reminder is marked sent once handed off and is never retried.
func (svc *service) DispatchDueReminders(ctx context.Context) (int, error) {
	due, err := svc.repo.QueryDueReminders(ctx, core.NowFunc())
	if err != nil {
		return 0, errors.Wrap(err, "querying due reminders")
	}

	var sent int
	for _, r := range due {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: r.UserName, Address: r.UserEmail}},
			Subject:      fmt.Sprintf("Reminder: %s", r.EventTitle),
			TemplateName: "event_reminder",
			TemplateData: struct {
				Name        string
				Title       string
				Start       string
				Location    string
				CourseTitle string
			}{
				Name:        r.UserName,
				Title:       r.EventTitle,
				Start:       r.EventStart.Format("Mon, 02 Jan 2006 15:04 MST"),
				Location:    r.EventLocation,
				CourseTitle: r.CourseTitle,
			},
		})
		if err = svc.repo.MarkReminderSent(ctx, r.ID); err != nil {
			return sent, errors.Wrap(err, "marking reminder as sent")
		}
		sent++
	}
	return sent, nil
}

// SyncAssignmentsToCalendar creates a "<title> (Due)" event for every assignment lacking one.
// Running it again creates nothing new. An assignment whose event cannot be stored does not
// stop the run; the first such error is returned along with the number of events created.
func (svc *service) SyncAssignmentsToCalendar(ctx context.Context) (int, error) {
	svc.syncMu.Lock()
	defer svc.syncMu.Unlock()

	assignments, err := svc.assignments.ListAll(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying assignments")
	}

	var created, failed int
	var firstErr error
	for _, a := range assignments {
		courseID := a.CourseID
		ok, err := svc.repo.CreateEventIfNotExists(ctx, Event{
			Title:       a.Title + dueSuffix,
			Description: a.Description,
			EventType:   EventAssignment,
			Start:       a.DueDate,
			End:         a.DueDate,
			CourseID:    &courseID,
			CreatedBy:   a.TeacherID,
			CreatedAt:   core.NowFunc(),
		})
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "creating event for assignment %d", a.ID)
			}
			failed++
			continue
		}
		if ok {
			created++
		}
	}
	if firstErr != nil {
		return created, errors.Wrapf(firstErr, "%d of %d assignment(s) not synced", failed, len(assignments))
	}
	return created, nil
}
