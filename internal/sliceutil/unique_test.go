package sliceutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueBy(t *testing.T) {
	t.Parallel()

	fold := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	tests := []struct {
		name  string
		items []string
		want  []string
	}{
		{"nil", nil, []string{}},
		{"no duplicates", []string{"oral", "écrit"}, []string{"oral", "écrit"}},
		{"keeps first spelling", []string{"Rigueur", "rigueur ", "oral"}, []string{"Rigueur", "oral"}},
		{"drops blanks", []string{" ", "oral", ""}, []string{"oral"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, UniqueBy(tt.items, fold))
		})
	}
}

func TestUniqueBy_Structs(t *testing.T) {
	t.Parallel()

	type slot struct{ Day, Slot int }
	got := UniqueBy([]slot{{1, 1}, {2, 1}, {1, 1}}, func(s slot) slot { return s })
	assert.Equal(t, []slot{{1, 1}, {2, 1}}, got)
}
