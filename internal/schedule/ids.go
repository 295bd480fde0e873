package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/classroom-planner/internal/dateutil"
)

var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("classroom-planner/course-session"))

// SessionID is the ID of the occurrence of templateID on date.
func SessionID(templateID string, date time.Time) string {
	return hashID(templateID, dateutil.FormatDate(date))
}

// ExceptionSessionID is the ID of a session materialized from an exception.
func ExceptionSessionID(templateID string, date time.Time, timeSlotID, exceptionID string) string {
	return hashID(templateID, dateutil.FormatDate(date), timeSlotID, exceptionID)
}

func hashID(parts ...string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(strings.Join(parts, "|"))).String()
}

// newExceptionID returns "<type>_<random uuid>".
func newExceptionID(t ExceptionType) string {
	return string(t) + "_" + uuid.NewString()
}
