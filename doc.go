/*
Package entityscope provides a scope-isolated dynamic entity registry in
front of a shared embedded relational engine.

Many independent callers (plugins) register data-entity descriptors at
runtime against one physical database. The registry namespaces every
caller's tables by its scope identity, rejects name collisions between
scopes, serializes all catalog-mutating operations, and releases resources
deterministically when a caller's lifecycle ends.

Key Features:
  - Collision-safe namespace prefixes derived from raw scope keys
  - Identity-stripping descriptor rewrites so shared descriptor constants
    can be registered under many scopes
  - Strict conflict detection across scopes for entity and table names
  - A reentrant FIFO executor guarding every catalog and engine mutation
  - Idempotent disposable handles wired into the hosting lifecycle
  - Scope-namespaced migration bookkeeping
  - Lazy, shared, retryable engine initialization per logical service

Basic Usage:

	states := entityscope.NewStateRegistry()
	reg := entityscope.New(states, hostRoot, "game-service",
	    entityscope.WithConfig(cfg))

	scoped := reg.Scope("pluginA")
	handle, err := scoped.RegisterEntity(ctx, &schema.Descriptor{
	    EntityName: "users",
	    Columns: []schema.Column{
	        {Name: "id", Type: "TEXT", PrimaryKey: true},
	        {Name: "name", Type: "TEXT", NotNull: true},
	    },
	}, entityscope.RegisterOptions{})

	// The physical table is named pluginA_users; another plugin registering
	// the same descriptor gets its own table.
	defer handle.Dispose(ctx)

Facade instances constructed for the same (root, serviceID) pair share one
engine, one catalog, and one executor, so every component of a logical
service observes the same registration state.

For more information, see the documentation at https://github.com/suparena/entityscope
*/
package entityscope
