package app

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cvector/cvec-go/internal/domain/model"
)

const (
	eavTablesTable  = "eav_tables"
	eavColumnsTable = "eav_columns"
	selectFromEAV   = "select_from_eav"
)

// GetEAVTables lists the EAV tables visible to the session.
func (c *Client) GetEAVTables(ctx context.Context) ([]model.EAVTable, error) {
	tables := []model.EAVTable{}
	if err := c.transport.QueryTable(ctx, eavTablesTable, nil, &tables); err != nil {
		return nil, fmt.Errorf("get eav tables: %w", err)
	}
	return tables, nil
}

// GetEAVColumns lists the columns of the table with id tableID.
func (c *Client) GetEAVColumns(ctx context.Context, tableID string) ([]model.EAVColumn, error) {
	cols := []model.EAVColumn{}
	q := url.Values{"eav_table_id": {"eq." + tableID}}
	if err := c.transport.QueryTable(ctx, eavColumnsTable, q, &cols); err != nil {
		return nil, fmt.Errorf("get eav columns of %s: %w", tableID, err)
	}
	return cols, nil
}

// SelectFromEAV pivots an EAV table addressed by names. Table and column
// names are resolved to ids, and the keys of the returned rows are mapped
// back from column ids to column names. Keys that are not column ids, such
// as the row id, are kept as is. A nil columnNames selects every column.
func (c *Client) SelectFromEAV(ctx context.Context, tenantID int, tableName string, columnNames []string, filters []model.EAVFilter) ([]map[string]any, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	tables, err := c.GetEAVTables(ctx)
	if err != nil {
		return nil, err
	}
	var tableID string
	for _, t := range tables {
		if t.Name == tableName {
			tableID = t.ID
			break
		}
	}
	if tableID == "" {
		return nil, fmt.Errorf("%w: Table '%s' not found", ErrTableNotFound, tableName)
	}

	cols, err := c.GetEAVColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}
	idByName := make(map[string]string, len(cols))
	nameByID := make(map[string]string, len(cols))
	for _, col := range cols {
		idByName[col.Name] = col.EAVColumnID
		nameByID[col.EAVColumnID] = col.Name
	}
	resolve := func(name string) (string, error) {
		id, ok := idByName[name]
		if !ok {
			return "", fmt.Errorf("%w: Column '%s' not found in table '%s'", ErrColumnNotFound, name, tableName)
		}
		return id, nil
	}

	var columnIDs []string
	if columnNames != nil {
		columnIDs = make([]string, 0, len(columnNames))
		for _, name := range columnNames {
			id, err := resolve(name)
			if err != nil {
				return nil, err
			}
			columnIDs = append(columnIDs, id)
		}
	}

	rpcFilters := make([]model.RPCFilter, 0, len(filters))
	for _, f := range filters {
		id := f.ColumnID
		if f.ColumnName != "" {
			if id, err = resolve(f.ColumnName); err != nil {
				return nil, err
			}
		}
		rpcFilters = append(rpcFilters, f.ToRPC(id))
	}

	rows, err := c.selectFromEAV(ctx, tenantID, tableID, columnIDs, rpcFilters)
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		named := make(map[string]any, len(row))
		for k, v := range row {
			if name, ok := nameByID[k]; ok {
				named[name] = v
				continue
			}
			named[k] = v
		}
		rows[i] = named
	}
	return rows, nil
}

// SelectFromEAVID pivots an EAV table addressed by ids. Rows are keyed by
// column id; filters must reference columns by id.
func (c *Client) SelectFromEAVID(ctx context.Context, tenantID int, tableID string, columnIDs []string, filters []model.EAVFilter) ([]map[string]any, error) {
	rpcFilters := make([]model.RPCFilter, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.ColumnID == "" {
			return nil, fmt.Errorf("%w: filters must use column_id when querying by id", ErrInvalidFilter)
		}
		rpcFilters = append(rpcFilters, f.ToRPC(f.ColumnID))
	}
	return c.selectFromEAV(ctx, tenantID, tableID, columnIDs, rpcFilters)
}

func (c *Client) selectFromEAV(ctx context.Context, tenantID int, tableID string, columnIDs []string, filters []model.RPCFilter) ([]map[string]any, error) {
	params := map[string]any{
		"tenant_id":  tenantID,
		"table_id":   tableID,
		"column_ids": columnIDs,
		"filters":    filters,
	}

	var rows []map[string]any
	if err := c.transport.CallRPC(ctx, selectFromEAV, params, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", selectFromEAV, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}
