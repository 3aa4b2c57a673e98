package models

import "time"

// SortOrder is the direction of a grid sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortModel describes the active grid sort.
type SortModel struct {
	Field string    `json:"field"`
	Sort  SortOrder `json:"sort"`
}

// GridSession is the public state of one grid view.
type GridSession struct {
	ID           string    `json:"id"`
	RowCount     int       `json:"rowCount"`
	Sort         SortModel `json:"sort"`
	Page         int       `json:"page"` // zero-based
	PageSize     int       `json:"pageSize"`
	OpenRowID    string    `json:"openRowId,omitempty"`
	Editing      bool      `json:"editing"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// GridPage is one page of grid rows.
type GridPage struct {
	Session   GridSession `json:"session"`
	Rows      []Record    `json:"rows"`
	RowIDs    []string    `json:"rowIds"` // parallel to Rows; addresses rows in detail requests
	Total     int         `json:"total"`
	PageCount int         `json:"pageCount"`
}

// DetailField is one labelled form field of the row detail dialog.
type DetailField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// RowDetail is the content of the row detail dialog.
type RowDetail struct {
	RowID   string        `json:"rowId"`
	Editing bool          `json:"editing"`
	Fields  []DetailField `json:"fields"`
}
