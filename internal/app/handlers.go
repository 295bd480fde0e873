package app

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/appreciation"
	"github.com/garyellow/classroom-planner/internal/ctxutil"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	domerrors "github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/notation"
	"github.com/garyellow/classroom-planner/internal/planner"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

type api struct {
	planner       *planner.Service
	appreciations *appreciation.Service
	now           func() time.Time
}

func teacherOf(c *gin.Context) string {
	return ctxutil.GetTeacherID(c.Request.Context())
}

// bind decodes the JSON body. Date fields report their own validation errors.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if domerrors.IsInvalidInput(err) {
			writeError(c, err)
		} else {
			badRequest(c, "body", "Corps JSON invalide")
		}
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := dateutil.ParseDate(raw)
	if err != nil {
		badRequest(c, name, "Date invalide, format attendu AAAA-MM-JJ")
		return time.Time{}, false
	}
	return t, true
}

// School years

func (a *api) createSchoolYear(c *gin.Context) {
	var req schoolYearRequest
	if !bind(c, &req) {
		return
	}
	year, err := a.planner.CreateSchoolYear(c.Request.Context(), teacherOf(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSchoolYear(year))
}

func (a *api) getSchoolYear(c *gin.Context) {
	year, err := a.planner.GetSchoolYear(c.Request.Context(), teacherOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSchoolYear(year))
}

// Structures

func (a *api) createStructure(c *gin.Context) {
	var req planner.StructureInput
	if !bind(c, &req) {
		return
	}
	structure, err := a.planner.CreateStructure(c.Request.Context(), teacherOf(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStructure(*structure))
}

func (a *api) getStructure(c *gin.Context) {
	structure, err := a.planner.GetStructure(c.Request.Context(), teacherOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStructure(*structure))
}

func (a *api) presetStructure(c *gin.Context) {
	structure, err := academic.PresetStructure(c.Param("model"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "Modèle inconnu : " + c.Param("model")})
		return
	}
	c.JSON(http.StatusOK, toStructure(structure))
}

// Periods

func (a *api) validateStructure(c *gin.Context) {
	result, err := a.planner.ValidateStructure(c.Request.Context(), teacherOf(c), c.Param("id"), c.Query("structureId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *api) planPeriods(c *gin.Context) {
	var req planPeriodsRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	var (
		periods []academic.Period
		err     error
	)
	if len(req.CustomDates) > 0 {
		periods, err = a.planner.PlanPeriodsWithCustomDates(ctx, teacherOf(c), c.Param("id"), req.StructureID, req.customDates())
	} else {
		periods, err = a.planner.PlanPeriods(ctx, teacherOf(c), c.Param("id"), req.StructureID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"periods": toPeriods(periods)})
}

func (a *api) listPeriods(c *gin.Context) {
	periods, err := a.planner.ListPeriods(c.Request.Context(), teacherOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": toPeriods(periods)})
}

func (a *api) periodStats(c *gin.Context) {
	stats, err := a.planner.PeriodStats(c.Request.Context(), teacherOf(c), c.Param("id"), c.Query("structureId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStats(stats))
}

func (a *api) currentPeriod(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}
	current, err := a.planner.CurrentPeriod(c.Request.Context(), teacherOf(c), c.Param("id"), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCurrentPeriod(current))
}

// Templates

func (a *api) createTemplate(c *gin.Context) {
	var req templateRequest
	if !bind(c, &req) {
		return
	}
	tpl, err := a.planner.CreateTemplate(c.Request.Context(), teacherOf(c), req.template())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (a *api) listTemplates(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	templates, err := a.planner.ListTemplates(c.Request.Context(), teacherOf(c), activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	if templates == nil {
		templates = []schedule.Template{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (a *api) deleteTemplate(c *gin.Context) {
	if err := a.planner.DeleteTemplate(c.Request.Context(), teacherOf(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Exceptions

func (a *api) cancelOccurrence(c *gin.Context) {
	var req cancelRequest
	if !bind(c, &req) {
		return
	}
	exc, err := a.planner.CancelOccurrence(c.Request.Context(), teacherOf(c), req.TemplateID, req.Date.Time, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toException(exc))
}

func (a *api) moveOccurrence(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	moved, added, err := a.planner.MoveOccurrence(c.Request.Context(), teacherOf(c), planner.MoveInput{
		TemplateID:    req.TemplateID,
		OriginalDate:  req.OriginalDate.Time,
		NewDate:       req.NewDate.Time,
		NewTimeSlotID: req.NewTimeSlotID,
		NewRoom:       req.NewRoom,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"moved": toException(moved), "added": toException(added)})
}

func (a *api) addSession(c *gin.Context) {
	var req addRequest
	if !bind(c, &req) {
		return
	}
	exc, err := a.planner.AddSession(c.Request.Context(), teacherOf(c), planner.AddInput{
		TemplateID: req.TemplateID,
		Date:       req.Date.Time,
		TimeSlotID: req.TimeSlotID,
		Room:       req.Room,
		Data:       req.SessionData,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toException(exc))
}

func (a *api) deleteException(c *gin.Context) {
	if err := a.planner.DeleteException(c.Request.Context(), teacherOf(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sessions

func (a *api) weekSessions(c *gin.Context) {
	start, ok := queryDate(c, "start")
	if !ok {
		return
	}
	if start.IsZero() {
		start = dateutil.DateOf(a.now())
	}
	sessions, err := a.planner.WeekSessions(c.Request.Context(), teacherOf(c), start)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"weekStart": newDate(dateutil.WeekStart(start)),
		"sessions":  toSessions(sessions),
	})
}

func (a *api) materializeSessions(c *gin.Context) {
	result, err := a.planner.MaterializeSchoolYear(c.Request.Context(), teacherOf(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, materializeResponse{
		SchoolYearID: result.SchoolYearID,
		Count:        result.Count,
		From:         newDate(result.From),
		To:           newDate(result.To),
		ExportKey:    result.ExportKey,
	})
}

// listSessions defaults the range to the whole school year.
func (a *api) listSessions(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if from.IsZero() || to.IsZero() {
		year, err := a.planner.GetSchoolYear(ctx, teacherOf(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if from.IsZero() {
			from = year.StartDate
		}
		if to.IsZero() {
			to = year.EndDate
		}
	}
	sessions, err := a.planner.ListSessions(ctx, teacherOf(c), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": toSessions(sessions)})
}

// Notation

func (a *api) notationSystems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"systems": notation.Defaults()})
}

func lookupSystem(c *gin.Context, id string) (notation.System, bool) {
	system, ok := notation.Lookup(id)
	if !ok {
		badRequest(c, "systemId", "Système de notation inconnu : "+id)
	}
	return system, ok
}

func (a *api) formatGrade(c *gin.Context) {
	var req formatRequest
	if !bind(c, &req) {
		return
	}
	system, ok := lookupSystem(c, req.SystemID)
	if !ok {
		return
	}
	grade, err := notation.Validate(system, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	pct, err := notation.ToPercentage(system, grade)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gradeResponse{
		Value:      grade.Value,
		Code:       grade.Code,
		Display:    notation.Format(system, grade, req.Language),
		Percentage: pct,
		Passing:    notation.IsPassing(system, grade),
	})
}

func (a *api) averageGrades(c *gin.Context) {
	var req averageRequest
	if !bind(c, &req) {
		return
	}
	system, ok := lookupSystem(c, req.SystemID)
	if !ok {
		return
	}

	var verrs domerrors.ValidationErrors
	grades := make([]notation.Weighted, 0, len(req.Grades))
	for i, g := range req.Grades {
		grade, err := notation.Validate(system, g.Value)
		if err != nil {
			for _, d := range domerrors.AsValidation(err) {
				verrs.Add("grades["+strconv.Itoa(i)+"].value", d.Message)
			}
			continue
		}
		grades = append(grades, notation.Weighted{Grade: grade, Coefficient: g.Coefficient})
	}
	if err := verrs.OrNil(); err != nil {
		writeError(c, err)
		return
	}

	avg, err := notation.ComputeAverage(system, grades)
	if err != nil {
		writeError(c, err)
		return
	}
	var display string
	if system.IsNumeric() {
		display = notation.Format(system, notation.Grade{Value: avg.Value}, req.Language)
	} else {
		display = strconv.FormatFloat(math.Round(avg.Value*100)/100, 'f', -1, 64)
	}
	c.JSON(http.StatusOK, averageResponse{
		Value:      avg.Value,
		Percentage: avg.Percentage,
		Count:      avg.Count,
		Display:    display,
	})
}

// Appreciations

func (a *api) generateAppreciation(c *gin.Context) {
	var req appreciation.Request
	if !bind(c, &req) {
		return
	}
	teacherID := teacherOf(c)
	result, err := a.appreciations.Generate(c.Request.Context(), teacherID, req)
	if err != nil {
		if domerrors.IsRateLimitExceeded(err) {
			retry := max(1, int(math.Ceil(a.appreciations.RetryAfter(teacherID).Seconds())))
			c.Header("Retry-After", strconv.Itoa(retry))
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
