package notation

// Default system IDs.
const (
	SystemTwenty     = "sur-20"
	SystemPercent    = "pourcentage"
	SystemLetters    = "lettres"
	SystemCompetency = "competences"
)

// Defaults returns the built-in systems. Each call returns fresh values.
func Defaults() []System {
	return []System{
		{
			ID:           SystemTwenty,
			Name:         "Note sur 20",
			Type:         TypeNumeric,
			MinValue:     0,
			MaxValue:     20,
			Decimals:     2,
			PassingValue: 10,
		},
		{
			ID:           SystemPercent,
			Name:         "Pourcentage",
			Type:         TypeNumeric,
			MinValue:     0,
			MaxValue:     100,
			Decimals:     0,
			PassingValue: 50,
		},
		{
			ID:           SystemLetters,
			Name:         "Lettres A-F",
			Type:         TypeLetter,
			PassingValue: 2,
			Levels: []Level{
				{Code: "A", Label: "A", Value: 5, Color: "#16a34a"},
				{Code: "B", Label: "B", Value: 4, Color: "#65a30d"},
				{Code: "C", Label: "C", Value: 3, Color: "#ca8a04"},
				{Code: "D", Label: "D", Value: 2, Color: "#ea580c"},
				{Code: "E", Label: "E", Value: 1, Color: "#dc2626"},
				{Code: "F", Label: "F", Value: 0, Color: "#991b1b"},
			},
		},
		{
			ID:           SystemCompetency,
			Name:         "Compétences",
			Type:         TypeCompetency,
			PassingValue: 3,
			Levels: []Level{
				{Code: "NA", Label: "Non acquis", Value: 1, Color: "#dc2626"},
				{Code: "EC", Label: "En cours d'acquisition", Value: 2, Color: "#ea580c"},
				{Code: "A", Label: "Acquis", Value: 3, Color: "#16a34a"},
				{Code: "D", Label: "Dépassé", Value: 4, Color: "#2563eb"},
			},
		},
	}
}

// Lookup returns the default system with id.
func Lookup(id string) (System, bool) {
	for _, s := range Defaults() {
		if s.ID == id {
			return s, true
		}
	}
	return System{}, false
}
