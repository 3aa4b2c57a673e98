// Package grid implements the paginated, sortable carrier table and its row detail dialog.
package grid

import (
	"slices"
	"strings"
)

// Column describes one grid column.
type Column struct {
	Field      string `json:"field"`
	HeaderName string `json:"headerName"`
	Width      int    `json:"width"`
	Sortable   bool   `json:"sortable"`
}

// ActionField is the non-sortable column holding the View and Delete buttons.
const ActionField = "action"

// DefaultColumns is the column layout of the carrier table.
var DefaultColumns = []Column{
	{Field: "created_dt", HeaderName: "Created_DT", Width: 150, Sortable: true},
	{Field: "data_source_modified_dt", HeaderName: "Modified_DT", Width: 150, Sortable: true},
	{Field: "entity_type", HeaderName: "Entity", Width: 150, Sortable: true},
	{Field: "operating_status", HeaderName: "Operating Status", Width: 150, Sortable: true},
	{Field: "legal_name", HeaderName: "Legal Name", Width: 150, Sortable: true},
	{Field: "dba_name", HeaderName: "DBA Name", Width: 150, Sortable: true},
	{Field: "physical_address", HeaderName: "Physical Address", Width: 200, Sortable: true},
	{Field: "phone", HeaderName: "Phone", Width: 150, Sortable: true},
	{Field: "usdot_number", HeaderName: "DOT", Width: 150, Sortable: true},
	{Field: "mc_mx_ff_number", HeaderName: "MC/MX/FF", Width: 150, Sortable: true},
	{Field: "power_units", HeaderName: "Power Units", Width: 150, Sortable: true},
	{Field: "out_of_service_date", HeaderName: "Out of Service Date", Width: 150, Sortable: true},
	{Field: ActionField, HeaderName: "Action", Width: 200, Sortable: false},
}

// Sortable reports whether field names a sortable column.
func Sortable(field string) bool {
	return slices.ContainsFunc(DefaultColumns, func(c Column) bool {
		return c.Field == field && c.Sortable
	})
}

// FieldLabel turns a record key into the detail form label, e.g. "legal_name" -> "LEGAL NAME".
func FieldLabel(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}
