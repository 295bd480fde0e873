package academic

import (
	"fmt"

	"github.com/garyellow/classroom-planner/internal/errors"
)

type preset struct {
	name  string
	names []string
}

var presets = map[string]preset{
	ModelTrimester: {
		name:  "Trimestres",
		names: []string{"1er trimestre", "2e trimestre", "3e trimestre"},
	},
	ModelSemester: {
		name:  "Semestres",
		names: []string{"1er semestre", "2e semestre"},
	},
	ModelQuarter: {
		name:  "Périodes",
		names: []string{"Période 1", "Période 2", "Période 3", "Période 4"},
	},
}

// PresetModels lists the models PresetStructure knows.
func PresetModels() []string {
	return []string{ModelTrimester, ModelSemester, ModelQuarter}
}

// PresetStructure returns the usual French structure for model.
func PresetStructure(model string) (Structure, error) {
	p, ok := presets[model]
	if !ok {
		return Structure{}, errors.NewValidationError("periodModel", fmt.Sprintf("unknown preset %q", model))
	}

	names := make(map[int]string, len(p.names))
	for i, n := range p.names {
		names[i+1] = n
	}
	return Structure{
		Name:           p.name,
		PeriodModel:    model,
		PeriodsPerYear: len(p.names),
		PeriodNames:    names,
	}, nil
}
