// Package pivot reshapes the record collection into the header-plus-rows matrix used for
// cross-tabulation, and holds the named pivot layouts.
package pivot

import (
	"github.com/carrier-dashboard/backend/internal/models"
)

// Schema selects how the matrix header is derived.
type Schema string

const (
	// SchemaFirst takes the header from the first record. Keys that only appear later are dropped.
	SchemaFirst Schema = "first"
	// SchemaUnion takes the header from every record, in first-seen order.
	SchemaUnion Schema = "union"
)

// ParseSchema maps a query value to a Schema. The empty string means SchemaFirst.
func ParseSchema(s string) (Schema, bool) {
	switch Schema(s) {
	case "", SchemaFirst:
		return SchemaFirst, true
	case SchemaUnion:
		return SchemaUnion, true
	}
	return "", false
}

// ToMatrix builds the matrix with the first record's keys as header.
func ToMatrix(records []models.Record) models.Matrix {
	if len(records) == 0 {
		return models.Matrix{}
	}
	return build(records, records[0].Keys())
}

// ToUnionMatrix builds the matrix with the union of all keys as header.
func ToUnionMatrix(records []models.Record) models.Matrix {
	if len(records) == 0 {
		return models.Matrix{}
	}
	seen := make(map[string]struct{})
	var header []string
	for _, rec := range records {
		for _, f := range rec.Fields {
			if _, ok := seen[f.Key]; ok {
				continue
			}
			seen[f.Key] = struct{}{}
			header = append(header, f.Key)
		}
	}
	return build(records, header)
}

// Build dispatches on schema.
func Build(records []models.Record, schema Schema) models.Matrix {
	if schema == SchemaUnion {
		return ToUnionMatrix(records)
	}
	return ToMatrix(records)
}

func build(records []models.Record, header []string) models.Matrix {
	m := make(models.Matrix, 0, len(records)+1)
	m = append(m, append([]string(nil), header...))
	for _, rec := range records {
		row := make([]string, len(header))
		for i, key := range header {
			row[i] = rec.Text(key)
		}
		m = append(m, row)
	}
	return m
}
