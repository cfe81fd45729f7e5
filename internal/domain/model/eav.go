package model

import (
	"fmt"
	"time"
)

// EAVTable is an entity-attribute-value table definition.
type EAVTable struct {
	ID        string     `json:"id"`
	TenantID  int        `json:"tenant_id"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// EAVColumn is a column (attribute) of an EAV table.
type EAVColumn struct {
	EAVTableID  string     `json:"eav_table_id"`
	EAVColumnID string     `json:"eav_column_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// EAVFilter narrows a pivot query on one column. NumericMin is inclusive,
// NumericMax exclusive. Exactly one of ColumnName and ColumnID must be set.
type EAVFilter struct {
	ColumnName   string   `json:"column_name,omitempty"`
	ColumnID     string   `json:"column_id,omitempty"`
	NumericMin   *float64 `json:"numeric_min,omitempty"`
	NumericMax   *float64 `json:"numeric_max,omitempty"`
	StringValue  *string  `json:"string_value,omitempty"`
	BooleanValue *bool    `json:"boolean_value,omitempty"`
}

// Validate checks the column identifier rule.
func (f EAVFilter) Validate() error {
	switch {
	case f.ColumnName == "" && f.ColumnID == "":
		return fmt.Errorf("%w: either column_name or column_id must be provided", ErrInvalidFilter)
	case f.ColumnName != "" && f.ColumnID != "":
		return fmt.Errorf("%w: only one of column_name or column_id can be provided", ErrInvalidFilter)
	}
	return nil
}

// RPCFilter is the wire form of a filter sent to the pivot RPC; it always
// references the column by id.
type RPCFilter struct {
	ColumnID     string   `json:"column_id"`
	NumericMin   *float64 `json:"numeric_min,omitempty"`
	NumericMax   *float64 `json:"numeric_max,omitempty"`
	StringValue  *string  `json:"string_value,omitempty"`
	BooleanValue *bool    `json:"boolean_value,omitempty"`
}

// ToRPC converts f to its wire form using columnID.
func (f EAVFilter) ToRPC(columnID string) RPCFilter {
	return RPCFilter{
		ColumnID:     columnID,
		NumericMin:   f.NumericMin,
		NumericMax:   f.NumericMax,
		StringValue:  f.StringValue,
		BooleanValue: f.BooleanValue,
	}
}
