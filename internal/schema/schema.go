// Package schema derives the destination table layout for a sync run.
// The Descriptor is the single intermediate both the create-table step
// and the flattening step consume, so the two cannot drift within a run.
package schema

import (
	"cloud.google.com/go/bigquery"

	"clicksync/internal/clickup"
)

type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeTimestamp ColumnType = "timestamp"
)

type Column struct {
	Name string
	Type ColumnType
}

// Descriptor is an ordered column sequence for the tasks table.
type Descriptor struct {
	Columns []Column
}

// Base column names, referenced by both schema build and flattening.
const (
	ColID          = "id"
	ColName        = "name"
	ColDescription = "description"
	ColStatus      = "status"
	ColPriority    = "priority"
	ColDueDate     = "due_date"
	ColSpaceID     = "space_id"
	ColListID      = "list_id"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"
)

// baseColumns is fixed; order matters for reproducibility of the table.
var baseColumns = []Column{
	{Name: ColID, Type: TypeString},
	{Name: ColName, Type: TypeString},
	{Name: ColDescription, Type: TypeString},
	{Name: ColStatus, Type: TypeString},
	{Name: ColPriority, Type: TypeInteger},
	{Name: ColDueDate, Type: TypeTimestamp},
	{Name: ColSpaceID, Type: TypeString},
	{Name: ColListID, Type: TypeString},
	{Name: ColCreatedAt, Type: TypeTimestamp},
	{Name: ColUpdatedAt, Type: TypeTimestamp},
}

// FieldColumn is the naming authority for custom-field columns.
func FieldColumn(fieldID string) string {
	return "custom_field_" + fieldID
}

// ForTasks builds the tasks-table descriptor: the fixed base columns plus
// one column per custom-field definition, in definition order.
func ForTasks(fields []clickup.CustomFieldDefinition) Descriptor {
	columns := make([]Column, 0, len(baseColumns)+len(fields))
	columns = append(columns, baseColumns...)
	for _, field := range fields {
		columns = append(columns, Column{
			Name: FieldColumn(field.ID),
			Type: fieldType(field.Type),
		})
	}
	return Descriptor{Columns: columns}
}

// fieldType maps a declared custom-field kind to a column type. The
// mapping is lossy on purpose: everything that is not a number or a date
// collapses to string.
func fieldType(kind string) ColumnType {
	switch kind {
	case "number":
		return TypeFloat
	case "date":
		return TypeTimestamp
	default:
		return TypeString
	}
}

// BigQuery renders the descriptor as a BigQuery schema, preserving order.
func (d Descriptor) BigQuery() bigquery.Schema {
	out := make(bigquery.Schema, 0, len(d.Columns))
	for _, col := range d.Columns {
		out = append(out, &bigquery.FieldSchema{
			Name: col.Name,
			Type: bigQueryType(col.Type),
		})
	}
	return out
}

func bigQueryType(t ColumnType) bigquery.FieldType {
	switch t {
	case TypeInteger:
		return bigquery.IntegerFieldType
	case TypeFloat:
		return bigquery.FloatFieldType
	case TypeTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}
