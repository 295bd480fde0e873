// Package schedule expands weekly templates into dated course sessions and
// applies per-occurrence exceptions (cancel, move, add).
package schedule

import "time"

// ExceptionType is the kind of override applied to one occurrence.
type ExceptionType string

// Exception types.
const (
	ExceptionCancelled ExceptionType = "cancelled"
	ExceptionMoved     ExceptionType = "moved"
	ExceptionAdded     ExceptionType = "added"
)

// Valid reports whether t is a known exception type.
func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionCancelled, ExceptionMoved, ExceptionAdded:
		return true
	}
	return false
}

// Status is the lifecycle state of a course session.
type Status string

// Session statuses.
const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Template is a recurring weekly slot. DayOfWeek runs from 1 (Monday) to 7 (Sunday).
type Template struct {
	ID         string `json:"id" validate:"required"`
	TeacherID  string `json:"teacherId" validate:"required"`
	ClassID    string `json:"classId" validate:"required"`
	SubjectID  string `json:"subjectId" validate:"required"`
	TimeSlotID string `json:"timeSlotId" validate:"required"`
	DayOfWeek  int    `json:"dayOfWeek" validate:"min=1,max=7"`
	Room       string `json:"room,omitempty"`
	IsActive   bool   `json:"isActive"`
}

// SessionData carries the content of an added session. Empty fields fall
// back to the matching template or to defaults.
type SessionData struct {
	TeacherID        string `json:"teacherId,omitempty"`
	ClassID          string `json:"classId" validate:"required"`
	SubjectID        string `json:"subjectId" validate:"required"`
	Status           Status `json:"status,omitempty" validate:"omitempty,oneof=planned in_progress completed cancelled"`
	Objectives       string `json:"objectives,omitempty"`
	Content          string `json:"content,omitempty"`
	HomeworkAssigned string `json:"homeworkAssigned,omitempty"`
	Notes            string `json:"notes,omitempty"`
	IsMakeup         bool   `json:"isMakeup,omitempty"`
}

// Exception overrides one occurrence of a template.
//
// For ExceptionAdded, NewTimeSlotID and SessionData are required and
// ExceptionDate is the date of the new session.
type Exception struct {
	ID            string        `json:"id"`
	TemplateID    string        `json:"templateId"`
	ExceptionDate time.Time     `json:"exceptionDate"`
	Type          ExceptionType `json:"type"`
	NewTimeSlotID string        `json:"newTimeSlotId,omitempty"`
	NewRoom       string        `json:"newRoom,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	SessionData   *SessionData  `json:"sessionData,omitempty"`
}

// Session is one dated occurrence of a class meeting.
//
// TemplateID and ExceptionID record where the session came from; ExceptionID
// is empty for plain template occurrences.
type Session struct {
	ID               string    `json:"id"`
	TeacherID        string    `json:"teacherId"`
	ClassID          string    `json:"classId"`
	SubjectID        string    `json:"subjectId"`
	TimeSlotID       string    `json:"timeSlotId"`
	TemplateID       string    `json:"templateId,omitempty"`
	ExceptionID      string    `json:"exceptionId,omitempty"`
	SessionDate      time.Time `json:"sessionDate"`
	Status           Status    `json:"status"`
	Room             string    `json:"room,omitempty"`
	IsMoved          bool      `json:"isMoved"`
	IsMakeup         bool      `json:"isMakeup"`
	Notes            string    `json:"notes,omitempty"`
	Objectives       string    `json:"objectives,omitempty"`
	Content          string    `json:"content,omitempty"`
	HomeworkAssigned string    `json:"homeworkAssigned,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
