/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

// Column describes one column of a dynamically registered entity.
type Column struct {
	// Name is the column name.
	Name string
	// Type is the engine-level column type (for example "TEXT" or "INTEGER").
	Type string
	// PrimaryKey marks the column as part of the primary key.
	PrimaryKey bool
	// NotNull forbids NULL values.
	NotNull bool
	// Default is an optional literal default expression.
	Default string
}

// Index describes a secondary index over the entity's table. Index names are
// relative to the table; engines namespace them with the physical table name
// so renamed entities never collide on index identifiers.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Descriptor describes one data entity as handed to the underlying engine.
//
// A Descriptor is a plain value: callers may share one descriptor constant
// across multiple registrations under different scopes, so nothing in this
// package ever mutates a caller-supplied Descriptor in place.
type Descriptor struct {
	// EntityName is the logical entity identity known to the engine.
	EntityName string
	// TableName is the physical table backing the entity.
	TableName string
	// Columns lists the entity's columns in declaration order.
	Columns []Column
	// Indexes lists secondary indexes, named relative to the table.
	Indexes []Index
	// Prototype optionally binds the descriptor to a concrete Go value whose
	// type the engine may use for row mapping. The binding carries the
	// original unscoped identity, so namespaced copies must not retain it.
	Prototype any
	// Options carries opaque engine-specific settings.
	Options map[string]string
}

// Clone returns a deep, independent copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	out := &Descriptor{
		EntityName: d.EntityName,
		TableName:  d.TableName,
		Prototype:  d.Prototype,
	}
	if len(d.Columns) > 0 {
		out.Columns = make([]Column, len(d.Columns))
		copy(out.Columns, d.Columns)
	}
	if len(d.Indexes) > 0 {
		out.Indexes = make([]Index, len(d.Indexes))
		for i, idx := range d.Indexes {
			cols := make([]string, len(idx.Columns))
			copy(cols, idx.Columns)
			out.Indexes[i] = Index{Name: idx.Name, Columns: cols, Unique: idx.Unique}
		}
	}
	if len(d.Options) > 0 {
		out.Options = make(map[string]string, len(d.Options))
		for k, v := range d.Options {
			out.Options[k] = v
		}
	}
	return out
}

// Rewrite produces a fresh descriptor bound to the namespaced entity and
// table names. The input is never mutated. The copy drops the Prototype
// binding: engines that resolve identity through a bound value would
// otherwise snap back to the original unscoped name during registration.
// The result is independently registrable with no residual link to the input.
func Rewrite(d *Descriptor, entityName, tableName string) *Descriptor {
	out := d.Clone()
	out.EntityName = entityName
	out.TableName = tableName
	out.Prototype = nil
	return out
}
