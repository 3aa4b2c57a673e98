package models

import "strings"

// Matrix is a header row followed by one text row per record.
type Matrix [][]string

// Header returns the first row, or nil for an empty matrix.
func (m Matrix) Header() []string {
	if len(m) == 0 {
		return nil
	}
	return m[0]
}

// Rows returns the data rows.
func (m Matrix) Rows() [][]string {
	if len(m) < 2 {
		return nil
	}
	return m[1:]
}

// KeySeparator joins multi-attribute row and column keys into the flat keys of CrossTab.Cells.
const KeySeparator = "\x00"

// FlatKey joins a row or column key the way CrossTab.Cells is keyed.
func FlatKey(keys []string) string {
	return strings.Join(keys, KeySeparator)
}

// PivotSettings mirrors the state of the cross-tabulation UI.
type PivotSettings struct {
	Name           string   `json:"name,omitempty" yaml:"name"`
	Rows           []string `json:"rows" yaml:"rows"`
	Cols           []string `json:"cols" yaml:"cols"`
	AggregatorName string   `json:"aggregatorName" yaml:"aggregator"`
	Vals           []string `json:"vals" yaml:"vals"`
	RendererName   string   `json:"rendererName" yaml:"renderer"`
}

// CrossTab is the computed result of a pivot.
type CrossTab struct {
	Settings   PivotSettings                 `json:"settings"`
	RowKeys    [][]string                    `json:"rowKeys"`
	ColKeys    [][]string                    `json:"colKeys"`
	Cells      map[string]map[string]float64 `json:"cells"` // flat row key -> flat col key -> value
	RowTotals  map[string]float64            `json:"rowTotals"`
	ColTotals  map[string]float64            `json:"colTotals"`
	GrandTotal float64                       `json:"grandTotal"`
}
