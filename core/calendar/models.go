package calendar

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type EventType string

const (
	EventClassSession EventType = "class_session"
	EventExam         EventType = "exam"
	EventAssignment   EventType = "assignment"
	EventOther        EventType = "other"
)

// dueSuffix marks events derived from assignment due dates.
const dueSuffix = " (Due)"

type Event struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	EventType       EventType `json:"event_type"`
	Start           time.Time `json:"start_datetime"`
	End             time.Time `json:"end_datetime"`
	Location        string    `json:"location"`
	CourseID        *int      `json:"course_id"`
	CourseTitle     string    `json:"course_title,omitempty"`
	CourseTeacherID *int      `json:"-"`
	CreatedBy       int       `json:"created_by"`
	CreatorName     string    `json:"creator_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (e Event) InCourse(courseID int) bool {
	return e.CourseID != nil && *e.CourseID == courseID
}

type Reminder struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	EventID      int       `json:"event_id"`
	ReminderTime time.Time `json:"reminder_time"`
	IsSent       bool      `json:"is_sent"`
	EventTitle   string    `json:"event_title,omitempty"`
	EventStart   time.Time `json:"event_start"`
}

// DueReminder is a Reminder ready to be delivered, with what the e-mail needs.
type DueReminder struct {
	Reminder
	UserName      string
	UserEmail     string
	EventLocation string
	CourseTitle   string
}

// DateRange bounds an event query. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps applies the calendar filter: the event starts in the range, ends in it, or spans it.
func (r DateRange) Overlaps(start, end time.Time) bool {
	in := func(t time.Time) bool { return !t.Before(r.Start) && !t.After(r.End) }
	return in(start) || in(end) || (!start.After(r.Start) && !end.Before(r.End))
}

// ParseDateRange reads the start and end of a range query. A date-only end covers that
// whole day. Both ends are required and end must not precede start.
func ParseDateRange(start, end string) (*DateRange, error) {
	s, sErr := core.ParseDateTime(start)
	e, eErr := core.ParseDateTime(end)
	if sErr != nil || eErr != nil {
		return nil, core.NewValidationError(errors.New("start and end must both be valid dates"))
	}
	if len(strings.TrimSpace(end)) == len("2006-01-02") {
		// postgres keeps microseconds
		e = now.With(e).EndOfDay().Truncate(time.Microsecond)
	}
	if e.Before(s) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must not be before start"})
	}
	return &DateRange{Start: s, End: e}, nil
}

// EventFilter selects the events visible to a user.
// Teachers see the events they created or that belong to a course they teach;
// students see the events of the courses they are enrolled in.
type EventFilter struct {
	UserID int
	Role   user.Role
	Range  *DateRange
	From   time.Time // when set, only events starting at or after From
	Limit  int
}

// EventForm holds the fields of a new or updated Event.
type EventForm struct {
	Title       string    `json:"title" validate:"required,notblank,max=255"`
	Description string    `json:"description" validate:"max=5000"`
	EventType   EventType `json:"event_type" validate:"required,eventtype"`
	StartDate   string    `json:"start_date" validate:"required"`
	StartTime   string    `json:"start_time"`
	EndDate     string    `json:"end_date" validate:"required"`
	EndTime     string    `json:"end_time"`
	Location    string    `json:"location" validate:"max=255"`
	CourseID    *int      `json:"course_id" validate:"omitempty,min=1"`

	start time.Time
	end   time.Time
}

func (ef *EventForm) Validate(validate *validator.Validate) error {
	ef.Title = core.CleanString(ef.Title)
	ef.Description = core.CleanString(ef.Description)
	ef.Location = core.CleanString(ef.Location)
	if ef.CourseID != nil && *ef.CourseID == 0 {
		ef.CourseID = nil
	}

	if err := validate.Struct(ef); err != nil {
		return err
	}

	var err error
	var flds []core.FieldError
	if ef.start, err = core.CombineDateTime(ef.StartDate, ef.StartTime); err != nil {
		flds = append(flds, core.FieldError{Field: "start_date", Error: "invalid date or time"})
	}
	if ef.end, err = core.CombineDateTime(ef.EndDate, ef.EndTime); err != nil {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "invalid date or time"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	if ef.end.Before(ef.start) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	}
	return nil
}

type ReminderForm struct {
	Days  int `json:"reminder_days" validate:"min=0,max=365"`
	Hours int `json:"reminder_hours" validate:"min=0,max=23"`
}

func (rf *ReminderForm) Validate(validate *validator.Validate) error {
	return validate.Struct(rf)
}

// Offset is the lead time of the reminder before the event start.
func (rf ReminderForm) Offset() time.Duration {
	return time.Duration(rf.Days)*24*time.Hour + time.Duration(rf.Hours)*time.Hour
}
