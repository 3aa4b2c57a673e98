package grid

import (
	"testing"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func TestSortRecords(t *testing.T) {
	records := []models.Record{
		testutil.Record("id", 1, "legal_name", "beta", "power_units", 10, "dot", "10"),
		testutil.Record("id", 2, "legal_name", nil, "power_units", 9, "dot", 9),
		testutil.Record("id", 3, "legal_name", "Alpha", "power_units", 100, "dot", "100"),
		testutil.Record("id", 4, "legal_name", "gamma", "power_units", nil, "dot", nil),
	}

	tests := []struct {
		name  string
		model models.SortModel
		want  []string
	}{
		{"text asc, nulls first, case-insensitive collation", models.SortModel{Field: "legal_name", Sort: models.SortAsc}, []string{"2", "3", "1", "4"}},
		{"text desc, nulls last", models.SortModel{Field: "legal_name", Sort: models.SortDesc}, []string{"4", "1", "3", "2"}},
		{"numbers compare numerically", models.SortModel{Field: "power_units", Sort: models.SortAsc}, []string{"4", "2", "1", "3"}},
		{"numeric text compares with numbers", models.SortModel{Field: "dot", Sort: models.SortAsc}, []string{"4", "2", "1", "3"}},
		{"missing field keeps order", models.SortModel{Field: "nope", Sort: models.SortAsc}, []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := make([]models.Record, len(records))
			copy(rs, records)
			SortRecords(rs, tt.model)
			assert.Equal(t, tt.want, ids(rs))
		})
	}
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 5))
	assert.Equal(t, 3, PageCount(11, 5))
	assert.Equal(t, 2, ClampPage(9, 11, 5))
	assert.Equal(t, 0, ClampPage(-3, 11, 5))
	assert.Equal(t, 0, ClampPage(4, 0, 5))

	start, end := Window(2, 11, 5)
	assert.Equal(t, 10, start)
	assert.Equal(t, 11, end)

	start, end = Window(0, 0, 5)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)

	for _, size := range []int{5, 10, 20, 50, 100} {
		assert.True(t, ValidPageSize(size))
	}
	assert.False(t, ValidPageSize(7))
}

func TestParseGoToPage(t *testing.T) {
	page, err := ParseGoToPage("2", 11, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	page, err = ParseGoToPage(" 99 ", 11, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page)

	page, err = ParseGoToPage("0", 11, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, page)

	_, err = ParseGoToPage("two", 11, 5)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "MCS 150 MILEAGE YEAR", FieldLabel("mcs_150_mileage_year"))
	assert.Equal(t, "ID", FieldLabel("id"))
}

func TestSortable(t *testing.T) {
	assert.True(t, Sortable("created_dt"))
	assert.False(t, Sortable(ActionField))
	assert.False(t, Sortable("drivers"))
}

func fixtureRecords(t *testing.T) []models.Record {
	t.Helper()
	return []models.Record{
		testutil.Carrier(3, "CARRIER", "OUT-OF-SERVICE", "2023-05-30"),
		testutil.Carrier(1, "CARRIER", "OUT-OF-SERVICE", "2023-05-02"),
		testutil.Carrier(6, "BROKER", "", "2023-07-01"),
		testutil.Carrier(2, "CARRIER", "OUT-OF-SERVICE", "2023-05-15"),
		testutil.Carrier(5, "CARRIER", "AUTHORIZED", "2023-06-10"),
		testutil.Carrier(4, "BROKER", "OUT-OF-SERVICE", "2023-06-04"),
	}
}
