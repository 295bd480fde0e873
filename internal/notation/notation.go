// Package notation implements configurable grading scales: numeric ranges
// (0-20, 0-100) and level scales (letters, competencies, custom codes).
package notation

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/garyellow/classroom-planner/internal/errors"
)

// Type is the family of a notation system.
type Type string

// Notation system types.
const (
	TypeNumeric    Type = "numeric"
	TypeLetter     Type = "letter"
	TypeCompetency Type = "competency"
	TypeCustom     Type = "custom"
)

// Level is one step of a level scale. Value orders levels and feeds averages.
type Level struct {
	Code  string  `json:"code" validate:"required"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// System describes a grading scale.
// Numeric systems use MinValue, MaxValue and Decimals; the others use Levels.
type System struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name"`
	Type         Type    `json:"type" validate:"oneof=numeric letter competency custom"`
	MinValue     float64 `json:"minValue"`
	MaxValue     float64 `json:"maxValue"`
	Decimals     int     `json:"decimals" validate:"min=0,max=4"`
	PassingValue float64 `json:"passingValue"`
	Levels       []Level `json:"levels,omitempty" validate:"dive"`
}

// IsNumeric reports whether grades are numbers rather than level codes.
func (s System) IsNumeric() bool {
	return s.Type == TypeNumeric
}

// Level returns the level with code, compared case-insensitively.
func (s System) Level(code string) (Level, bool) {
	i := slices.IndexFunc(s.Levels, func(l Level) bool { return strings.EqualFold(l.Code, code) })
	if i < 0 {
		return Level{}, false
	}
	return s.Levels[i], true
}

// Grade is a validated mark. Code is set for level systems, Value always.
type Grade struct {
	Value float64 `json:"value"`
	Code  string  `json:"code,omitempty"`
}

// Validate parses raw as a grade of system. Numeric input accepts a decimal
// comma ("14,5") and is rounded to the system's decimals.
func Validate(system System, raw string) (Grade, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Grade{}, errors.NewValidationError("value", "la note est vide")
	}

	if !system.IsNumeric() {
		level, ok := system.Level(raw)
		if !ok {
			return Grade{}, errors.NewValidationError("value",
				fmt.Sprintf("%q n'est pas un niveau de %s", raw, system.Name))
		}
		return Grade{Value: level.Value, Code: level.Code}, nil
	}

	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Grade{}, errors.NewValidationError("value", fmt.Sprintf("%q n'est pas un nombre", raw))
	}
	if v < system.MinValue || v > system.MaxValue {
		return Grade{}, errors.NewValidationError("value",
			fmt.Sprintf("la note doit être comprise entre %g et %g", system.MinValue, system.MaxValue))
	}
	return Grade{Value: round(v, system.Decimals)}, nil
}

// Format renders grade for display in lang ("fr", "en"...). Numeric grades
// show the scale ("14,5/20"); level grades show the level label.
func Format(system System, grade Grade, lang string) string {
	if !system.IsNumeric() {
		if level, ok := system.Level(grade.Code); ok {
			if level.Label != "" {
				return level.Label
			}
			return level.Code
		}
		return grade.Code
	}

	p := message.NewPrinter(parseLanguage(lang))
	digits := number.MaxFractionDigits(system.Decimals)
	return p.Sprintf("%v/%v", number.Decimal(grade.Value, digits), number.Decimal(system.MaxValue, digits))
}

func parseLanguage(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.French
	}
	return tag
}

// ToPercentage maps grade onto 0..100 so marks from different systems can be
// compared. Level grades are placed between the lowest and highest level.
func ToPercentage(system System, grade Grade) (float64, error) {
	lo, hi, err := bounds(system)
	if err != nil {
		return 0, err
	}
	if hi == lo {
		return 100, nil
	}
	pct := (grade.Value - lo) / (hi - lo) * 100
	return math.Max(0, math.Min(100, pct)), nil
}

// IsPassing reports whether grade reaches the system's passing value.
func IsPassing(system System, grade Grade) bool {
	return grade.Value >= system.PassingValue
}

// Weighted is a grade with its coefficient.
type Weighted struct {
	Grade       Grade   `json:"grade"`
	Coefficient float64 `json:"coefficient"`
}

// Average is the coefficient-weighted mean of grades.
type Average struct {
	// Value is on the system's scale, rounded to its decimals (two decimals
	// for level systems).
	Value float64 `json:"value"`
	// Percentage is Value mapped onto 0..100.
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// ComputeAverage computes the weighted mean. Non-positive coefficients are
// rejected; an empty list is an error too.
func ComputeAverage(system System, grades []Weighted) (Average, error) {
	if len(grades) == 0 {
		return Average{}, errors.NewValidationError("grades", "aucune note à moyenner")
	}

	var sum, weights float64
	for i, g := range grades {
		if g.Coefficient <= 0 {
			return Average{}, errors.NewValidationError(fmt.Sprintf("grades[%d].coefficient", i),
				"le coefficient doit être positif")
		}
		sum += g.Grade.Value * g.Coefficient
		weights += g.Coefficient
	}

	decimals := system.Decimals
	if !system.IsNumeric() {
		decimals = 2
	}
	mean := Grade{Value: round(sum/weights, decimals)}
	pct, err := ToPercentage(system, mean)
	if err != nil {
		return Average{}, err
	}
	return Average{Value: mean.Value, Percentage: round(pct, 1), Count: len(grades)}, nil
}

func bounds(system System) (lo, hi float64, err error) {
	if system.IsNumeric() {
		if system.MaxValue < system.MinValue {
			return 0, 0, errors.NewValidationError("maxValue", "maxValue est inférieur à minValue")
		}
		return system.MinValue, system.MaxValue, nil
	}
	if len(system.Levels) == 0 {
		return 0, 0, errors.NewValidationError("levels", "le système n'a aucun niveau")
	}
	lo, hi = system.Levels[0].Value, system.Levels[0].Value
	for _, l := range system.Levels[1:] {
		lo = math.Min(lo, l.Value)
		hi = math.Max(hi, l.Value)
	}
	return lo, hi, nil
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
