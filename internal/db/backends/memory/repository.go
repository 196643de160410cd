package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plumehq/plume-backend/internal/db/interfaces"
	"github.com/plumehq/plume-backend/internal/db/query"
)

// Repository implements the Repository interface for in-memory storage
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

func cloneRecord(record map[string]interface{}) map[string]interface{} {
	clone := make(map[string]interface{}, len(record))
	for k, v := range record {
		clone[k] = v
	}
	return clone
}

// GetByID retrieves a single record by its ID
func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	record, exists := table[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return cloneRecord(record), nil
}

// FindOne retrieves the first record matching the query
func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	limit := 1
	q.Limit = &limit

	result, err := r.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

// FindMany retrieves multiple records matching the query with pagination
func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	r.db.mu.RLock()
	table, exists := r.db.tables[r.tableName]
	if !exists {
		r.db.mu.RUnlock()
		return &interfaces.ResultPage{
			Data:     []map[string]interface{}{},
			Total:    0,
			Page:     1,
			PageSize: 0,
		}, nil
	}

	var records []map[string]interface{}
	for _, record := range table {
		records = append(records, cloneRecord(record))
	}
	r.db.mu.RUnlock()

	if q.Where != nil {
		var filtered []map[string]interface{}
		for _, record := range records {
			if r.builder.MatchesFilters(record, q.Where) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	total := int64(len(records))

	if len(q.OrderBy) > 0 {
		records = r.builder.ApplySort(records, q.OrderBy)
	}

	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	pageSize := len(records)
	if q.Limit != nil {
		pageSize = *q.Limit
	}

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)

	if len(q.Select) > 0 {
		var projected []map[string]interface{}
		for _, record := range records {
			projectedRecord := make(map[string]interface{}, len(q.Select))
			for _, field := range q.Select {
				if value, exists := record[field]; exists {
					projectedRecord[field] = value
				}
			}
			projected = append(projected, projectedRecord)
		}
		records = projected
	}

	page := 1
	if pageSize > 0 {
		page = (offset / pageSize) + 1
	}

	return &interfaces.ResultPage{
		Data:     records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Create inserts a new record. Unique and foreign key constraints are
// checked and the record stored while holding the database lock, so a
// constraint violation is the authoritative signal under concurrency.
func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.builder.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	record := cloneRecord(data)

	if _, exists := record["id"]; !exists {
		record["id"] = uuid.New().String()
	}

	now := time.Now()
	record["created_at"] = now
	record["updated_at"] = now

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			record[fieldName] = fieldSchema.DefaultValue
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tables[r.tableName]; !exists {
		r.db.tables[r.tableName] = make(map[string]map[string]interface{})
	}

	table := r.db.tables[r.tableName]
	id := record["id"].(string)

	if _, exists := table[id]; exists {
		return nil, fmt.Errorf("record with id '%s' already exists", id)
	}

	if err := r.checkUniqueConstraints(table, record, ""); err != nil {
		return nil, err
	}

	if err := r.checkForeignKeyConstraints(record); err != nil {
		return nil, err
	}

	table[id] = record

	return cloneRecord(record), nil
}

// Update modifies an existing record by ID
func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	existing, exists := table[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := cloneRecord(existing)
	for k, v := range data {
		updated[k] = v
	}
	updated["updated_at"] = time.Now()

	if err := r.checkUniqueConstraints(table, updated, id.String()); err != nil {
		return nil, err
	}

	if err := r.checkForeignKeyConstraints(updated); err != nil {
		return nil, err
	}

	table[id.String()] = updated

	return cloneRecord(updated), nil
}

// Upsert inserts or updates based on unique field constraints
func (r *Repository) Upsert(ctx context.Context, uniqueFields map[string]interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	q := &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: make([]interfaces.Filter, 0, len(uniqueFields)),
		},
	}

	for field, value := range uniqueFields {
		q.Where.Conditions = append(q.Where.Conditions, interfaces.Filter{
			Field: field,
			Value: value,
		})
	}

	existing, err := r.FindOne(ctx, q)
	if err != nil && err != interfaces.ErrNotFound {
		return nil, err
	}

	if existing != nil {
		id := existing["id"].(string)
		return r.Update(ctx, interfaces.StringID(id), data)
	}

	createData := cloneRecord(data)
	for k, v := range uniqueFields {
		createData[k] = v
	}

	return r.Create(ctx, createData)
}

// Delete removes a record by ID. Referencing rows in other tables are
// removed when their foreign key declares ON DELETE CASCADE, otherwise
// the delete is rejected.
func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return interfaces.ErrNotFound
	}

	if _, exists := table[id.String()]; !exists {
		return interfaces.ErrNotFound
	}

	if err := r.resolveReferencesOnDelete(id.String()); err != nil {
		return err
	}

	delete(table, id.String())
	return nil
}

// Count returns the number of records matching the query
func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	if q == nil {
		r.db.mu.RLock()
		table, exists := r.db.tables[r.tableName]
		count := int64(0)
		if exists {
			count = int64(len(table))
		}
		r.db.mu.RUnlock()
		return count, nil
	}

	result, err := r.FindMany(ctx, &interfaces.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}

	return result.Total, nil
}

// GetSchema returns the schema for this repository
func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

// checkUniqueConstraints verifies single-field unique constraints and
// unique indexes. Callers must hold db.mu.
func (r *Repository) checkUniqueConstraints(table map[string]map[string]interface{}, record map[string]interface{}, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}
			if existingValue, exists := existing[fieldName]; exists && existingValue == value {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	for _, index := range r.schema.Indexes {
		if !index.Unique {
			continue
		}

		key := compositeKey(record, index.Columns)

		for id, existing := range table {
			if id == excludeID {
				continue
			}
			if compositeKey(existing, index.Columns) == key {
				return fmt.Errorf("%w: unique index '%s'", interfaces.ErrUniqueConstraint, index.Name)
			}
		}
	}

	return nil
}

func compositeKey(record map[string]interface{}, columns []string) string {
	key := ""
	for _, column := range columns {
		key += fmt.Sprintf("%v\x00", record[column])
	}
	return key
}

// checkForeignKeyConstraints verifies that referenced records exist.
// Callers must hold db.mu.
func (r *Repository) checkForeignKeyConstraints(record map[string]interface{}) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if fieldSchema.ForeignKey == nil {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		refTable, exists := r.db.tables[fieldSchema.ForeignKey.Table]
		if !exists {
			return fmt.Errorf("%w: referenced table '%s' does not exist", interfaces.ErrForeignKeyConstraint, fieldSchema.ForeignKey.Table)
		}

		found := false
		for _, refRecord := range refTable {
			if refValue, exists := refRecord[fieldSchema.ForeignKey.Column]; exists && refValue == value {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: field '%s' references non-existent record '%v'", interfaces.ErrForeignKeyConstraint, fieldName, value)
		}
	}

	return nil
}

// resolveReferencesOnDelete walks registered schemas for foreign keys
// pointing at this table. CASCADE removes the referencing rows, any
// other mode blocks the delete. Callers must hold db.mu.
func (r *Repository) resolveReferencesOnDelete(id string) error {
	for tableName, schema := range r.db.schemas {
		if tableName == r.tableName {
			continue
		}

		for fieldName, fieldSchema := range schema.Fields {
			fk := fieldSchema.ForeignKey
			if fk == nil || fk.Table != r.tableName {
				continue
			}

			table := r.db.tables[tableName]
			for refID, record := range table {
				if record[fieldName] != id {
					continue
				}
				if fk.OnDelete != "CASCADE" {
					return fmt.Errorf("%w: record is referenced by table '%s', field '%s'", interfaces.ErrForeignKeyConstraint, tableName, fieldName)
				}
				delete(table, refID)
			}
		}
	}

	return nil
}
