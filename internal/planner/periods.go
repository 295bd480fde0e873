package planner

import (
	"context"
	"fmt"
	"maps"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/validation"
)

// CreateSchoolYear validates and stores a school year.
func (s *Service) CreateSchoolYear(ctx context.Context, teacherID string, in SchoolYearInput) (*academic.SchoolYear, error) {
	wrapper := errors.NewWrapper("planner", "create_school_year")

	var list errors.ValidationErrors
	list = append(list, errors.AsValidation(validation.Struct("", in))...)
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && !in.EndDate.After(in.StartDate) {
		list.Add("endDate", "La date de fin doit être postérieure à la date de début")
	}
	if err := list.OrNil(); err != nil {
		return nil, wrapper.Wrap(err, "Année scolaire invalide")
	}

	year := &academic.SchoolYear{
		ID:        in.ID,
		TeacherID: teacherID,
		Name:      in.Name,
		StartDate: dateutil.Truncate(in.StartDate),
		EndDate:   dateutil.Truncate(in.EndDate),
		IsActive:  in.IsActive,
	}
	if year.ID == "" {
		year.ID = s.newID()
	}
	if err := s.repo.SaveSchoolYear(ctx, year); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer l'année scolaire")
	}
	return year, nil
}

// GetSchoolYear returns one of the teacher's school years.
func (s *Service) GetSchoolYear(ctx context.Context, teacherID, id string) (*academic.SchoolYear, error) {
	year, err := s.repo.GetSchoolYear(ctx, teacherID, id)
	if err != nil {
		return nil, errors.NewWrapper("planner", "get_school_year").Wrap(err, "Année scolaire introuvable")
	}
	return year, nil
}

// CreateStructure validates and stores a structure, completing missing
// period names.
func (s *Service) CreateStructure(ctx context.Context, teacherID string, in StructureInput) (*academic.Structure, error) {
	wrapper := errors.NewWrapper("planner", "create_structure")
	if err := validation.Struct("", in); err != nil {
		return nil, wrapper.Wrap(err, "Structure invalide")
	}

	structure := &academic.Structure{
		ID:             in.ID,
		TeacherID:      teacherID,
		Name:           in.Name,
		PeriodModel:    in.PeriodModel,
		PeriodsPerYear: in.PeriodsPerYear,
		PeriodNames:    completeNames(in),
	}
	if structure.ID == "" {
		structure.ID = s.newID()
	}
	if err := s.repo.SaveStructure(ctx, structure); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer la structure")
	}
	return structure, nil
}

func completeNames(in StructureInput) map[int]string {
	names := make(map[int]string, in.PeriodsPerYear)
	if preset, err := academic.PresetStructure(in.PeriodModel); err == nil && preset.PeriodsPerYear == in.PeriodsPerYear {
		maps.Copy(names, preset.PeriodNames)
	}
	for order, name := range in.PeriodNames {
		if order >= 1 && order <= in.PeriodsPerYear && name != "" {
			names[order] = name
		}
	}
	for order := 1; order <= in.PeriodsPerYear; order++ {
		if names[order] == "" {
			names[order] = academic.DefaultPeriodName(order)
		}
	}
	return names
}

// GetStructure returns one of the teacher's structures.
func (s *Service) GetStructure(ctx context.Context, teacherID, id string) (*academic.Structure, error) {
	structure, err := s.repo.GetStructure(ctx, teacherID, id)
	if err != nil {
		return nil, errors.NewWrapper("planner", "get_structure").Wrap(err, "Structure introuvable")
	}
	return structure, nil
}

// loadYearAndStructure fetches both concurrently.
func (s *Service) loadYearAndStructure(ctx context.Context, teacherID, schoolYearID, structureID string) (*academic.SchoolYear, *academic.Structure, error) {
	var (
		year      *academic.SchoolYear
		structure *academic.Structure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		year, err = s.repo.GetSchoolYear(gctx, teacherID, schoolYearID)
		return err
	})
	g.Go(func() error {
		var err error
		structure, err = s.repo.GetStructure(gctx, teacherID, structureID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return year, structure, nil
}

// ValidateStructure reports whether the structure can divide the year.
func (s *Service) ValidateStructure(ctx context.Context, teacherID, schoolYearID, structureID string) (academic.ValidationResult, error) {
	year, structure, err := s.loadYearAndStructure(ctx, teacherID, schoolYearID, structureID)
	if err != nil {
		return academic.ValidationResult{}, errors.NewWrapper("planner", "validate_structure").
			Wrap(err, "Impossible de charger l'année ou la structure")
	}
	return academic.ValidateStructureForSchoolYear(*structure, *year), nil
}

// PlanPeriods splits the school year with the structure and replaces its
// stored periods. The structure must pass ValidateStructure.
func (s *Service) PlanPeriods(ctx context.Context, teacherID, schoolYearID, structureID string) ([]academic.Period, error) {
	wrapper := errors.NewWrapper("planner", "plan_periods")
	start := time.Now()

	year, structure, err := s.loadYearAndStructure(ctx, teacherID, schoolYearID, structureID)
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger l'année ou la structure")
	}

	if report := academic.ValidateStructureForSchoolYear(*structure, *year); !report.IsValid {
		var list errors.ValidationErrors
		for _, msg := range report.Errors {
			list.Add("structure", msg)
		}
		return nil, wrapper.Wrap(list, "La structure ne convient pas à cette année scolaire")
	}

	periods, err := academic.GeneratePeriods(*year, *structure, teacherID, dateutil.DateOf(s.now()))
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de générer les périodes")
	}
	if err := s.repo.ReplacePeriods(ctx, teacherID, year.ID, periods); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer les périodes")
	}

	s.metrics.RecordGeneration("plan_periods", "period", len(periods), time.Since(start))
	return periods, nil
}

// PlanPeriodsWithCustomDates stores one period per entry of dates. Every
// period must lie within the school year, end on or after its start and not
// overlap the previous one.
func (s *Service) PlanPeriodsWithCustomDates(ctx context.Context, teacherID, schoolYearID, structureID string, dates []academic.CustomDates) ([]academic.Period, error) {
	wrapper := errors.NewWrapper("planner", "plan_custom_periods")
	start := time.Now()

	year, structure, err := s.loadYearAndStructure(ctx, teacherID, schoolYearID, structureID)
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger l'année ou la structure")
	}
	if err := validateCustomDates(*year, dates); err != nil {
		return nil, wrapper.Wrap(err, "Dates de périodes invalides")
	}

	periods, err := academic.GeneratePeriodsWithCustomDates(academic.GenerateOptions{
		SchoolYear: *year,
		Structure:  *structure,
		TeacherID:  teacherID,
	}, dates, dateutil.DateOf(s.now()))
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de générer les périodes")
	}
	if err := s.repo.ReplacePeriods(ctx, teacherID, year.ID, periods); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer les périodes")
	}

	s.metrics.RecordGeneration("plan_custom_periods", "period", len(periods), time.Since(start))
	return periods, nil
}

func validateCustomDates(year academic.SchoolYear, dates []academic.CustomDates) error {
	var list errors.ValidationErrors
	if len(dates) == 0 {
		list.Add("customDates", "Au moins une période est requise")
	}
	var prevEnd time.Time
	for i, d := range dates {
		field := fmt.Sprintf("customDates[%d]", i)
		start, end := dateutil.Truncate(d.StartDate), dateutil.Truncate(d.EndDate)
		switch {
		case d.StartDate.IsZero() || d.EndDate.IsZero():
			list.Add(field, "Les dates de début et de fin sont obligatoires")
			continue
		case end.Before(start):
			list.Add(field, "La date de fin précède la date de début")
		case !dateutil.Between(start, year.StartDate, year.EndDate) || !dateutil.Between(end, year.StartDate, year.EndDate):
			list.Add(field, "La période dépasse les bornes de l'année scolaire")
		case !prevEnd.IsZero() && !start.After(prevEnd):
			list.Add(field, "La période chevauche la précédente")
		}
		prevEnd = end
	}
	return list.OrNil()
}

// ListPeriods returns the stored periods of a school year.
func (s *Service) ListPeriods(ctx context.Context, teacherID, schoolYearID string) ([]academic.Period, error) {
	wrapper := errors.NewWrapper("planner", "list_periods")
	if _, err := s.repo.GetSchoolYear(ctx, teacherID, schoolYearID); err != nil {
		return nil, wrapper.Wrap(err, "Année scolaire introuvable")
	}
	periods, err := s.repo.ListPeriods(ctx, teacherID, schoolYearID)
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger les périodes")
	}
	return periods, nil
}

// PeriodStats previews the split of the year by the structure.
func (s *Service) PeriodStats(ctx context.Context, teacherID, schoolYearID, structureID string) (academic.Stats, error) {
	wrapper := errors.NewWrapper("planner", "period_stats")
	year, structure, err := s.loadYearAndStructure(ctx, teacherID, schoolYearID, structureID)
	if err != nil {
		return academic.Stats{}, wrapper.Wrap(err, "Impossible de charger l'année ou la structure")
	}
	stats, err := academic.CalculateStructureStats(*structure, *year)
	if err != nil {
		return academic.Stats{}, wrapper.Wrap(err, "Impossible de calculer les statistiques")
	}
	return stats, nil
}

// CurrentPeriod locates date (today when zero) within the stored periods.
func (s *Service) CurrentPeriod(ctx context.Context, teacherID, schoolYearID string, date time.Time) (CurrentPeriod, error) {
	periods, err := s.ListPeriods(ctx, teacherID, schoolYearID)
	if err != nil {
		return CurrentPeriod{}, err
	}

	if date.IsZero() {
		date = dateutil.DateOf(s.now())
	}
	date = dateutil.Truncate(date)

	current := CurrentPeriod{Date: date}
	if p, ok := academic.FindActivePeriod(periods, date); ok {
		current.Active = &p
		current.Progress = academic.ProgressInPeriod(p, date)
	}
	if p, ok := academic.GetNextPeriod(periods, date); ok {
		current.Next = &p
	}
	if p, ok := academic.GetPreviousPeriod(periods, date); ok {
		current.Previous = &p
	}
	return current, nil
}
