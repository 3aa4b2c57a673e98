package grid

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/carrier-dashboard/backend/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultSort is the initial sort of a new grid view.
var DefaultSort = models.SortModel{Field: "created_dt", Sort: models.SortAsc}

// SortRecords stably sorts records in place by one field.
// Nulls come first ascending, numbers compare numerically and text uses an English collator.
func SortRecords(records []models.Record, model models.SortModel) {
	sortBy(records, func(r models.Record) models.Record { return r }, model)
}

func sortRows(rows []row, model models.SortModel) {
	sortBy(rows, func(r row) models.Record { return r.rec }, model)
}

func sortBy[T any](items []T, recordOf func(T) models.Record, model models.SortModel) {
	col := collate.New(language.English)
	desc := model.Sort == models.SortDesc
	sort.SliceStable(items, func(i, j int) bool {
		a, _ := recordOf(items[i]).Get(model.Field)
		b, _ := recordOf(items[j]).Get(model.Field)
		c := compareValues(col, a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(col *collate.Collator, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := numberOf(a); ok {
		if fb, ok := numberOf(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return col.CompareString(models.TextOf(a), models.TextOf(b))
}

// numberOf reads JSON numbers and numeric text. Saved edits are text, so "100" must still
// sort after 9.
func numberOf(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}
