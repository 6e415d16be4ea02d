package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type calendarRepository struct {
	db *DB
}

var _ calendar.Repository = (*calendarRepository)(nil)

func NewCalendarRepository(db *DB) calendar.Repository {
	return &calendarRepository{db: db}
}

func (repo *calendarRepository) withRefs(e calendar.Event) calendar.Event {
	e.CourseTitle = ""
	e.CourseTeacherID = nil
	if e.CourseID != nil {
		if c, ok := repo.db.courses[*e.CourseID]; ok {
			e.CourseTitle = c.Title
			e.CourseTeacherID = intPtr(c.TeacherID)
		}
	}
	e.CreatorName = repo.db.userName(e.CreatedBy)
	return e
}

func (repo *calendarRepository) checkCourse(courseID *int) error {
	if courseID == nil {
		return nil
	}
	if _, ok := repo.db.courses[*courseID]; !ok {
		return course.ErrNotFound
	}
	return nil
}

func (repo *calendarRepository) visible(e calendar.Event, filter calendar.EventFilter) bool {
	switch filter.Role {
	case user.RoleTeacher:
		return e.CreatedBy == filter.UserID || (e.CourseTeacherID != nil && *e.CourseTeacherID == filter.UserID)
	case user.RoleStudent:
		return e.CourseID != nil && repo.db.enrolled(filter.UserID, *e.CourseID)
	}
	return false
}

func sortByStart(events []calendar.Event) []calendar.Event {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func (repo *calendarRepository) CreateEvent(_ context.Context, e calendar.Event) (calendar.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkCourse(e.CourseID); err != nil {
		return calendar.Event{}, err
	}
	e.ID = repo.db.nextID()
	repo.db.events[e.ID] = &e
	return repo.withRefs(e), nil
}

func (repo *calendarRepository) CreateEventIfNotExists(_ context.Context, e calendar.Event) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, ev := range repo.db.events {
		sameCourse := (ev.CourseID == nil && e.CourseID == nil) ||
			(ev.CourseID != nil && e.CourseID != nil && *ev.CourseID == *e.CourseID)
		if ev.Title == e.Title && ev.EventType == e.EventType && sameCourse {
			return false, nil
		}
	}
	if err := repo.checkCourse(e.CourseID); err != nil {
		return false, err
	}
	e.ID = repo.db.nextID()
	repo.db.events[e.ID] = &e
	return true, nil
}

func (repo *calendarRepository) UpdateEvent(_ context.Context, e calendar.Event) (calendar.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.events[e.ID]
	if !ok {
		return calendar.Event{}, calendar.ErrNotFound
	}
	if err := repo.checkCourse(e.CourseID); err != nil {
		return calendar.Event{}, err
	}
	e.CreatedBy = orig.CreatedBy
	e.CreatedAt = orig.CreatedAt
	repo.db.events[e.ID] = &e
	return repo.withRefs(e), nil
}

func (repo *calendarRepository) DeleteEvent(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return calendar.ErrNotFound
	}
	repo.db.deleteEventCascade(id)
	return nil
}

func (repo *calendarRepository) GetEventByID(_ context.Context, id int) (calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.events[id]; ok {
		return repo.withRefs(*e), nil
	}
	return calendar.Event{}, calendar.ErrNotFound
}

func (repo *calendarRepository) QueryEvents(_ context.Context, filter calendar.EventFilter) ([]calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]calendar.Event, 0)
	for _, ev := range repo.db.events {
		e := repo.withRefs(*ev)
		if !repo.visible(e, filter) {
			continue
		}
		if filter.Range != nil && !filter.Range.Overlaps(e.Start, e.End) {
			continue
		}
		if !filter.From.IsZero() && e.Start.Before(filter.From) {
			continue
		}
		events = append(events, e)
	}
	events = sortByStart(events)
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (repo *calendarRepository) QueryEventsByCourse(_ context.Context, courseID int) ([]calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]calendar.Event, 0)
	for _, e := range repo.db.events {
		if e.InCourse(courseID) {
			events = append(events, repo.withRefs(*e))
		}
	}
	return sortByStart(events), nil
}

func (repo *calendarRepository) CreateReminder(_ context.Context, r calendar.Reminder) (calendar.Reminder, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e, ok := repo.db.events[r.EventID]
	if !ok {
		return calendar.Reminder{}, calendar.ErrNotFound
	}
	r.ID = repo.db.nextID()
	r.IsSent = false
	repo.db.reminders[r.ID] = &r
	r.EventTitle = e.Title
	r.EventStart = e.Start
	return r, nil
}

func (repo *calendarRepository) withEvent(r calendar.Reminder) calendar.Reminder {
	if e, ok := repo.db.events[r.EventID]; ok {
		r.EventTitle = e.Title
		r.EventStart = e.Start
	}
	return r
}

func sortByReminderTime(reminders []calendar.Reminder) {
	sort.Slice(reminders, func(i, j int) bool {
		if reminders[i].ReminderTime.Equal(reminders[j].ReminderTime) {
			return reminders[i].ID < reminders[j].ID
		}
		return reminders[i].ReminderTime.Before(reminders[j].ReminderTime)
	})
}

func (repo *calendarRepository) QueryActiveReminders(_ context.Context, userID int, t time.Time) ([]calendar.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reminders := make([]calendar.Reminder, 0)
	for _, r := range repo.db.reminders {
		if r.UserID == userID && !r.IsSent && r.ReminderTime.After(t) {
			reminders = append(reminders, repo.withEvent(*r))
		}
	}
	sortByReminderTime(reminders)
	return reminders, nil
}

func (repo *calendarRepository) QueryDueReminders(_ context.Context, t time.Time) ([]calendar.DueReminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var reminders []calendar.Reminder
	for _, r := range repo.db.reminders {
		if !r.IsSent && !r.ReminderTime.After(t) {
			reminders = append(reminders, repo.withEvent(*r))
		}
	}
	sortByReminderTime(reminders)

	due := make([]calendar.DueReminder, 0, len(reminders))
	for _, r := range reminders {
		dr := calendar.DueReminder{Reminder: r}
		if usr, ok := repo.db.users[r.UserID]; ok {
			dr.UserName = usr.Name
			dr.UserEmail = usr.Email
		}
		if e, ok := repo.db.events[r.EventID]; ok {
			dr.EventLocation = e.Location
			dr.CourseTitle = repo.withRefs(*e).CourseTitle
		}
		due = append(due, dr)
	}
	return due, nil
}

func (repo *calendarRepository) DeleteReminder(_ context.Context, id, userID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.reminders[id]
	if !ok || r.UserID != userID {
		return calendar.ErrReminderNotFound
	}
	delete(repo.db.reminders, id)
	return nil
}

func (repo *calendarRepository) MarkReminderSent(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.reminders[id]
	if !ok {
		return calendar.ErrReminderNotFound
	}
	r.IsSent = true
	return nil
}
