package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory stand-in for the relational store. It enforces the same
// unique constraints and cascades as the SQL schema.
type DB struct {
	sync.RWMutex
	seq int

	users       map[int]*user.User
	courses     map[int]*course.Course
	enrollments map[int]*course.Enrollment
	assignments map[int]*assignment.Assignment
	submissions map[int]*assignment.Submission
	events      map[int]*calendar.Event
	reminders   map[int]*calendar.Reminder
	messages    map[int]*chat.Message
}

func Open() *DB {
	return &DB{
		users:       make(map[int]*user.User),
		courses:     make(map[int]*course.Course),
		enrollments: make(map[int]*course.Enrollment),
		assignments: make(map[int]*assignment.Assignment),
		submissions: make(map[int]*assignment.Submission),
		events:      make(map[int]*calendar.Event),
		reminders:   make(map[int]*calendar.Reminder),
		messages:    make(map[int]*chat.Message),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int {
	db.seq++
	return db.seq
}

func (db *DB) userName(id int) string {
	if u, ok := db.users[id]; ok {
		return u.Name
	}
	return ""
}

func (db *DB) enrolled(studentID, courseID int) bool {
	for _, e := range db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true
		}
	}
	return false
}

// deleteCourseCascade must be called with the write lock held.
func (db *DB) deleteCourseCascade(id int) {
	delete(db.courses, id)
	for eid, e := range db.enrollments {
		if e.CourseID == id {
			delete(db.enrollments, eid)
		}
	}
	for aid, a := range db.assignments {
		if a.CourseID == id {
			db.deleteAssignmentCascade(aid)
		}
	}
	for eid, e := range db.events {
		if e.InCourse(id) {
			db.deleteEventCascade(eid)
		}
	}
	for mid, m := range db.messages {
		if m.CourseID == id {
			delete(db.messages, mid)
		}
	}
}

func (db *DB) deleteAssignmentCascade(id int) {
	delete(db.assignments, id)
	for sid, s := range db.submissions {
		if s.AssignmentID == id {
			delete(db.submissions, sid)
		}
	}
}

func (db *DB) deleteEventCascade(id int) {
	delete(db.events, id)
	for rid, r := range db.reminders {
		if r.EventID == id {
			delete(db.reminders, rid)
		}
	}
}

func intPtr(i int) *int { return &i }
