/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import "testing"

type boundModel struct {
	ID   string
	Name string
}

func sampleDescriptor() *Descriptor {
	return &Descriptor{
		EntityName: "users",
		TableName:  "users",
		Columns: []Column{
			{Name: "id", Type: "TEXT", PrimaryKey: true},
			{Name: "name", Type: "TEXT", NotNull: true},
			{Name: "age", Type: "INTEGER", Default: "0"},
		},
		Indexes: []Index{
			{Name: "by_name", Columns: []string{"name"}},
		},
		Prototype: boundModel{},
		Options:   map[string]string{"journal": "wal"},
	}
}

func TestRewriteRenamesAndStripsPrototype(t *testing.T) {
	in := sampleDescriptor()
	out := Rewrite(in, "pluginA_users", "pluginA_users")

	if out.EntityName != "pluginA_users" {
		t.Errorf("EntityName = %q, want pluginA_users", out.EntityName)
	}
	if out.TableName != "pluginA_users" {
		t.Errorf("TableName = %q, want pluginA_users", out.TableName)
	}
	if out.Prototype != nil {
		t.Error("Rewrite must strip the Prototype binding")
	}
	if len(out.Columns) != 3 || out.Columns[0].Name != "id" {
		t.Errorf("Rewrite lost columns: %+v", out.Columns)
	}
}

func TestRewriteNeverMutatesInput(t *testing.T) {
	in := sampleDescriptor()
	out := Rewrite(in, "pluginA_users", "pluginA_users")

	if in.EntityName != "users" || in.TableName != "users" {
		t.Errorf("input renamed in place: %q/%q", in.EntityName, in.TableName)
	}
	if in.Prototype == nil {
		t.Error("input prototype stripped in place")
	}

	// Deep independence: mutating the copy must not leak into the input.
	out.Columns[0].Name = "uid"
	out.Indexes[0].Columns[0] = "uid"
	out.Options["journal"] = "memory"

	if in.Columns[0].Name != "id" {
		t.Errorf("column mutation leaked into input: %q", in.Columns[0].Name)
	}
	if in.Indexes[0].Columns[0] != "name" {
		t.Errorf("index mutation leaked into input: %q", in.Indexes[0].Columns[0])
	}
	if in.Options["journal"] != "wal" {
		t.Errorf("option mutation leaked into input: %q", in.Options["journal"])
	}
}

func TestRewriteSharedDescriptorAcrossScopes(t *testing.T) {
	shared := sampleDescriptor()

	a := Rewrite(shared, "pluginA_users", "pluginA_users")
	b := Rewrite(shared, "pluginB_users", "pluginB_users")

	if a.TableName == b.TableName {
		t.Errorf("rewrites of a shared descriptor collided on table %q", a.TableName)
	}
	if shared.TableName != "users" {
		t.Errorf("shared descriptor mutated: %q", shared.TableName)
	}
}

func TestCloneNil(t *testing.T) {
	var d *Descriptor
	if d.Clone() != nil {
		t.Error("Clone of nil descriptor should be nil")
	}
}
