package noteservice

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/carnet/internal/models"
)

// SortByTitle returns a copy of notes ordered by title using a
// case-insensitive collation. The sort is stable.
func SortByTitle(notes []models.Note, ascending bool) []models.Note {
	out := slices.Clone(notes)
	c := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b models.Note) int {
		r := c.CompareString(a.Title, b.Title)
		if !ascending {
			r = -r
		}
		return r
	})
	return out
}

// SortByDate returns a copy of notes ordered by the given timestamp. With
// newestFirst the most recent note comes first. The sort is stable.
func SortByDate(notes []models.Note, field models.DateField, newestFirst bool) []models.Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b models.Note) int {
		r := field.Time(a).Compare(field.Time(b))
		if newestFirst {
			r = -r
		}
		return r
	})
	return out
}

// FilterByTitle returns the notes whose title contains query, ignoring case.
// An empty query returns every note.
func FilterByTitle(notes []models.Note, query string) []models.Note {
	if query == "" {
		return slices.Clone(notes)
	}
	q := strings.ToLower(query)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) {
			out = append(out, n)
		}
	}
	return out
}
