/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"fmt"
	"reflect"

	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/sqlbind/database"
)

// resolveTable maps the entity type through the engine's schema registry.
func resolveTable[T any](provider database.SessionProvider) (*schema.Table, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct type", database.ErrInvalidModel, typ)
	}
	return provider.DB().Table(typ), nil
}

// resolvePrimaryKey returns the table's single primary key field. Tables
// with composite keys or no key at all cannot back a repository.
func resolvePrimaryKey(table *schema.Table) (*schema.Field, error) {
	switch len(table.PKs) {
	case 1:
		return table.PKs[0], nil
	case 0:
		return nil, fmt.Errorf("%w: model %s has no primary key", database.ErrInvalidModel, table.TypeName)
	default:
		return nil, fmt.Errorf("%w: model %s", database.ErrCompositePrimaryKey, table.TypeName)
	}
}

// lookupField resolves a column name against the table, so unmapped names
// fail before any query is built.
func (r *sqlRepository[T]) lookupField(column string) (*schema.Field, error) {
	field, ok := r.table.FieldMap[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q on model %s", database.ErrUnmappedProperty, column, r.table.TypeName)
	}
	return field, nil
}

// kindClass buckets kinds so that comparable representations of the same
// ordering domain match while cross-domain comparisons do not. A string
// cursor against a numeric column would silently order lexicographically
// ("9" sorts after "10"), so it is rejected up front.
func kindClass(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "numeric"
	default:
		return k.String()
	}
}

// validateCursorValue ensures the cursor value's runtime type is comparable
// with the cursor column's mapped type. There is no coercion.
func validateCursorValue(field *schema.Field, value interface{}) error {
	if value == nil {
		return fmt.Errorf("%w: nil cursor value for column %q", database.ErrCursorTypeMismatch, field.Name)
	}
	typ := reflect.TypeOf(value)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if kindClass(typ.Kind()) != kindClass(field.IndirectType.Kind()) {
		return fmt.Errorf("%w: cursor value %T does not match column %q (%s)",
			database.ErrCursorTypeMismatch, value, field.Name, field.IndirectType)
	}
	return nil
}

// fieldValue extracts the field's value from a model instance, for building
// cursors out of result rows.
func fieldValue[T any](field *schema.Field, model *T) interface{} {
	return field.Value(reflect.ValueOf(model).Elem()).Interface()
}
