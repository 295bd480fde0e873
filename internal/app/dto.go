package app

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/planner"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

// civilDate is a calendar date carried as "YYYY-MM-DD" in JSON.
type civilDate struct {
	time.Time
}

func newDate(t time.Time) civilDate {
	return civilDate{Time: t}
}

func (d civilDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(dateutil.FormatDate(d.Time))
}

func (d *civilDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.NewValidationError("date", "La date doit être une chaîne AAAA-MM-JJ")
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := dateutil.ParseDate(s)
	if err != nil {
		return errors.NewValidationError("date", "Date invalide : "+s)
	}
	d.Time = t
	return nil
}

type errorResponse struct {
	Error   string        `json:"error"`
	Details []fieldDetail `json:"details,omitempty"`
}

type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// School years and structures

type schoolYearRequest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate civilDate `json:"startDate"`
	EndDate   civilDate `json:"endDate"`
	IsActive  bool      `json:"isActive"`
}

func (r schoolYearRequest) input() planner.SchoolYearInput {
	return planner.SchoolYearInput{
		ID:        r.ID,
		Name:      r.Name,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.Time,
		IsActive:  r.IsActive,
	}
}

type schoolYearResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate civilDate `json:"startDate"`
	EndDate   civilDate `json:"endDate"`
	IsActive  bool      `json:"isActive"`
	TotalDays int       `json:"totalDays"`
}

func toSchoolYear(y *academic.SchoolYear) schoolYearResponse {
	return schoolYearResponse{
		ID:        y.ID,
		Name:      y.Name,
		StartDate: newDate(y.StartDate),
		EndDate:   newDate(y.EndDate),
		IsActive:  y.IsActive,
		TotalDays: y.TotalDays(),
	}
}

type structureResponse struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name"`
	PeriodModel    string         `json:"periodModel"`
	PeriodsPerYear int            `json:"periodsPerYear"`
	PeriodNames    map[int]string `json:"periodNames"`
}

func toStructure(s academic.Structure) structureResponse {
	return structureResponse{
		ID:             s.ID,
		Name:           s.Name,
		PeriodModel:    s.PeriodModel,
		PeriodsPerYear: s.PeriodsPerYear,
		PeriodNames:    s.PeriodNames,
	}
}

// Periods

type customDateRequest struct {
	Name      string    `json:"name"`
	StartDate civilDate `json:"startDate"`
	EndDate   civilDate `json:"endDate"`
}

type planPeriodsRequest struct {
	StructureID string              `json:"structureId"`
	CustomDates []customDateRequest `json:"customDates"`
}

func (r planPeriodsRequest) customDates() []academic.CustomDates {
	dates := make([]academic.CustomDates, 0, len(r.CustomDates))
	for _, d := range r.CustomDates {
		dates = append(dates, academic.CustomDates{Name: d.Name, StartDate: d.StartDate.Time, EndDate: d.EndDate.Time})
	}
	return dates
}

type periodResponse struct {
	ID           string    `json:"id"`
	SchoolYearID string    `json:"schoolYearId"`
	Name         string    `json:"name"`
	Order        int       `json:"order"`
	StartDate    civilDate `json:"startDate"`
	EndDate      civilDate `json:"endDate"`
	Days         int       `json:"days"`
	IsActive     bool      `json:"isActive"`
}

func toPeriod(p academic.Period) periodResponse {
	return periodResponse{
		ID:           p.ID,
		SchoolYearID: p.SchoolYearID,
		Name:         p.Name,
		Order:        p.Order,
		StartDate:    newDate(p.StartDate),
		EndDate:      newDate(p.EndDate),
		Days:         p.Days(),
		IsActive:     p.IsActive,
	}
}

func toPeriods(periods []academic.Period) []periodResponse {
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriod(p))
	}
	return out
}

func toPeriodPtr(p *academic.Period) *periodResponse {
	if p == nil {
		return nil
	}
	r := toPeriod(*p)
	return &r
}

type periodInfoResponse struct {
	Order      int       `json:"order"`
	Name       string    `json:"name"`
	StartDate  civilDate `json:"startDate"`
	EndDate    civilDate `json:"endDate"`
	Days       int       `json:"days"`
	Percentage int       `json:"percentage"`
}

type statsResponse struct {
	TotalDays            int                  `json:"totalDays"`
	AverageDaysPerPeriod int                  `json:"averageDaysPerPeriod"`
	PeriodsInfo          []periodInfoResponse `json:"periodsInfo"`
}

func toStats(s academic.Stats) statsResponse {
	out := statsResponse{
		TotalDays:            s.TotalDays,
		AverageDaysPerPeriod: s.AverageDaysPerPeriod,
		PeriodsInfo:          make([]periodInfoResponse, 0, len(s.PeriodsInfo)),
	}
	for _, p := range s.PeriodsInfo {
		out.PeriodsInfo = append(out.PeriodsInfo, periodInfoResponse{
			Order:      p.Order,
			Name:       p.Name,
			StartDate:  newDate(p.StartDate),
			EndDate:    newDate(p.EndDate),
			Days:       p.Days,
			Percentage: p.Percentage,
		})
	}
	return out
}

type currentPeriodResponse struct {
	Date     civilDate       `json:"date"`
	Active   *periodResponse `json:"active"`
	Next     *periodResponse `json:"next"`
	Previous *periodResponse `json:"previous"`
	Progress float64         `json:"progress"`
}

func toCurrentPeriod(c planner.CurrentPeriod) currentPeriodResponse {
	return currentPeriodResponse{
		Date:     newDate(c.Date),
		Active:   toPeriodPtr(c.Active),
		Next:     toPeriodPtr(c.Next),
		Previous: toPeriodPtr(c.Previous),
		Progress: c.Progress,
	}
}

// Templates

// templateRequest treats a missing isActive as true.
type templateRequest struct {
	ID         string `json:"id"`
	ClassID    string `json:"classId"`
	SubjectID  string `json:"subjectId"`
	TimeSlotID string `json:"timeSlotId"`
	DayOfWeek  int    `json:"dayOfWeek"`
	Room       string `json:"room"`
	IsActive   *bool  `json:"isActive"`
}

func (r templateRequest) template() schedule.Template {
	return schedule.Template{
		ID:         r.ID,
		ClassID:    r.ClassID,
		SubjectID:  r.SubjectID,
		TimeSlotID: r.TimeSlotID,
		DayOfWeek:  r.DayOfWeek,
		Room:       r.Room,
		IsActive:   r.IsActive == nil || *r.IsActive,
	}
}

// Exceptions and sessions

type cancelRequest struct {
	TemplateID string    `json:"templateId"`
	Date       civilDate `json:"date"`
	Reason     string    `json:"reason"`
}

type moveRequest struct {
	TemplateID    string    `json:"templateId"`
	OriginalDate  civilDate `json:"originalDate"`
	NewDate       civilDate `json:"newDate"`
	NewTimeSlotID string    `json:"newTimeSlotId"`
	NewRoom       string    `json:"newRoom"`
	Reason        string    `json:"reason"`
}

type addRequest struct {
	TemplateID  string               `json:"templateId"`
	Date        civilDate            `json:"date"`
	TimeSlotID  string               `json:"timeSlotId"`
	Room        string               `json:"room"`
	SessionData schedule.SessionData `json:"sessionData"`
}

type exceptionResponse struct {
	ID            string                 `json:"id"`
	TemplateID    string                 `json:"templateId"`
	ExceptionDate civilDate              `json:"exceptionDate"`
	Type          schedule.ExceptionType `json:"type"`
	NewTimeSlotID string                 `json:"newTimeSlotId,omitempty"`
	NewRoom       string                 `json:"newRoom,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	SessionData   *schedule.SessionData  `json:"sessionData,omitempty"`
}

func toException(e *schedule.Exception) exceptionResponse {
	return exceptionResponse{
		ID:            e.ID,
		TemplateID:    e.TemplateID,
		ExceptionDate: newDate(e.ExceptionDate),
		Type:          e.Type,
		NewTimeSlotID: e.NewTimeSlotID,
		NewRoom:       e.NewRoom,
		Reason:        e.Reason,
		SessionData:   e.SessionData,
	}
}

type sessionResponse struct {
	ID               string          `json:"id"`
	ClassID          string          `json:"classId"`
	SubjectID        string          `json:"subjectId"`
	TimeSlotID       string          `json:"timeSlotId"`
	TemplateID       string          `json:"templateId,omitempty"`
	ExceptionID      string          `json:"exceptionId,omitempty"`
	SessionDate      civilDate       `json:"sessionDate"`
	Status           schedule.Status `json:"status"`
	Room             string          `json:"room,omitempty"`
	IsMoved          bool            `json:"isMoved"`
	IsMakeup         bool            `json:"isMakeup"`
	Notes            string          `json:"notes,omitempty"`
	Objectives       string          `json:"objectives,omitempty"`
	Content          string          `json:"content,omitempty"`
	HomeworkAssigned string          `json:"homeworkAssigned,omitempty"`
}

func toSessions(sessions []schedule.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:               s.ID,
			ClassID:          s.ClassID,
			SubjectID:        s.SubjectID,
			TimeSlotID:       s.TimeSlotID,
			TemplateID:       s.TemplateID,
			ExceptionID:      s.ExceptionID,
			SessionDate:      newDate(s.SessionDate),
			Status:           s.Status,
			Room:             s.Room,
			IsMoved:          s.IsMoved,
			IsMakeup:         s.IsMakeup,
			Notes:            s.Notes,
			Objectives:       s.Objectives,
			Content:          s.Content,
			HomeworkAssigned: s.HomeworkAssigned,
		})
	}
	return out
}

type materializeResponse struct {
	SchoolYearID string    `json:"schoolYearId"`
	Count        int       `json:"count"`
	From         civilDate `json:"from"`
	To           civilDate `json:"to"`
	ExportKey    string    `json:"exportKey,omitempty"`
}

// Notation

type formatRequest struct {
	SystemID string `json:"systemId"`
	Value    string `json:"value"`
	Language string `json:"language"`
}

type gradeResponse struct {
	Value      float64 `json:"value"`
	Code       string  `json:"code,omitempty"`
	Display    string  `json:"display"`
	Percentage float64 `json:"percentage"`
	Passing    bool    `json:"passing"`
}

type weightedRequest struct {
	Value       string  `json:"value"`
	Coefficient float64 `json:"coefficient"`
}

type averageRequest struct {
	SystemID string            `json:"systemId"`
	Grades   []weightedRequest `json:"grades"`
	Language string            `json:"language"`
}

type averageResponse struct {
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
	Display    string  `json:"display"`
}
