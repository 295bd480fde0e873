package schedule

import (
	"strings"
	"time"

	"github.com/garyellow/classroom-planner/internal/dateutil"
)

// NewCancellation cancels the occurrence of templateID on date.
func NewCancellation(templateID string, date time.Time, reason string) Exception {
	return Exception{
		ID:            newExceptionID(ExceptionCancelled),
		TemplateID:    templateID,
		ExceptionDate: dateutil.Truncate(date),
		Type:          ExceptionCancelled,
		Reason:        reason,
	}
}

// NewMove marks the occurrence of templateID on originalDate as moved.
// Pair it with an addition for the new placement, or use NewReschedule.
func NewMove(templateID string, originalDate time.Time, newTimeSlotID, newRoom, reason string) Exception {
	return Exception{
		ID:            newExceptionID(ExceptionMoved),
		TemplateID:    templateID,
		ExceptionDate: dateutil.Truncate(originalDate),
		Type:          ExceptionMoved,
		NewTimeSlotID: newTimeSlotID,
		NewRoom:       newRoom,
		Reason:        reason,
	}
}

// NewAddition creates an extra session on date.
func NewAddition(templateID string, date time.Time, timeSlotID, room string, data SessionData) Exception {
	return Exception{
		ID:            newExceptionID(ExceptionAdded),
		TemplateID:    templateID,
		ExceptionDate: dateutil.Truncate(date),
		Type:          ExceptionAdded,
		NewTimeSlotID: timeSlotID,
		NewRoom:       room,
		SessionData:   &data,
	}
}

// NewReschedule returns the moved/added pair that relocates the occurrence
// of templateID from originalDate to newDate.
func NewReschedule(templateID string, originalDate, newDate time.Time, newTimeSlotID, newRoom, reason string, data SessionData) (moved, added Exception) {
	moved = NewMove(templateID, originalDate, newTimeSlotID, newRoom, reason)
	added = NewAddition(templateID, newDate, newTimeSlotID, newRoom, data)
	added.ID = string(ExceptionAdded) + moved.ID[len(ExceptionMoved):]
	added.Reason = reason
	return moved, added
}

// RescheduleCounterpart returns the ID of the other half of a NewReschedule
// pair. The added half shares the moved half's random suffix. A plain
// addition also yields an ID, but no moved exception carries it.
func RescheduleCounterpart(id string) (string, bool) {
	for _, pair := range [][2]ExceptionType{{ExceptionMoved, ExceptionAdded}, {ExceptionAdded, ExceptionMoved}} {
		if suffix, ok := strings.CutPrefix(id, string(pair[0])+"_"); ok && suffix != "" {
			return string(pair[1]) + "_" + suffix, true
		}
	}
	return "", false
}
