/*
Package engine defines the contract between the EntityScope registry and the
embedded relational engine it fronts.

The main interface is Engine, which exposes exactly the operations the
registry needs — descriptor discovery, non-destructive schema
synchronization, raw SQL execution, forked read sessions, and shutdown:

	type Engine interface {
	    Discover(ctx context.Context, desc *schema.Descriptor, reset bool) error
	    Forget(ctx context.Context, entityName string) error
	    SyncSchema(ctx context.Context, opts SyncOptions) error
	    Exec(ctx context.Context, stmt string, args ...any) error
	    Session(opts SessionOptions) (Session, error)
	    SQLSession(opts SessionOptions) (SQLSession, error)
	    Close(ctx context.Context) error
	}

Engines that support versioned migrations additionally implement the
Migrator capability; the registry probes for it with a type assertion.

Implementations:
  - sqlite: embedded SQLite implementation over modernc.org/sqlite
  - mock: in-memory mock implementation for testing
*/
package engine
