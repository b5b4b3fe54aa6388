/*
Package errors provides semantic error types for the EntityScope registry.

The package defines the failure modes of dynamic entity registration with
specific types that can be checked using the standard errors.Is() function or
the provided helper functions.

Common Errors:

	var (
	    ErrMissingCallerContext = errors.New("missing caller context")
	    ErrEntityConflict       = errors.New("entity name conflict")
	    ErrTableNameConflict    = errors.New("table name conflict")
	    ErrEngineNotInitialized = errors.New("engine not initialized")
	    ErrMigratorUnavailable  = errors.New("migrator unavailable")
	)

Usage:

	// Check error type
	handle, err := scoped.RegisterEntity(ctx, desc, opts)
	if err != nil {
	    if errors.IsEntityConflict(err) {
	        // Another scope already owns this entity name
	        return fmt.Errorf("pick a different entity name: %w", err)
	    }
	    return err
	}

	// Create typed errors
	err := errors.NewEntityConflictError("pluginA_users", "pluginA", "pluginB")
	err := errors.NewTableNameConflictError("pluginA_users", "pluginA_users", "pluginB_members")

Every conflict error names the offending entity or table and the owning
scope, so collisions between independently developed plugins stay
diagnosable. The error types implement the error interface and support
wrapping, making them compatible with Go's standard error handling patterns.
*/
package errors
