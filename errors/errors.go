/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrMissingCallerContext is returned when a scoped operation is invoked
	// with no resolvable caller identity
	ErrMissingCallerContext = errors.New("missing caller context")

	// ErrEntityConflict is returned when two different scopes claim the same
	// computed entity name
	ErrEntityConflict = errors.New("entity name conflict")

	// ErrTableNameConflict is returned when two different entities resolve to
	// the same table name
	ErrTableNameConflict = errors.New("table name conflict")

	// ErrEngineNotInitialized is returned when an operation reaches the engine
	// before initialization completed
	ErrEngineNotInitialized = errors.New("engine not initialized")

	// ErrMigratorUnavailable is returned when migrations are requested but the
	// engine build carries no migration capability
	ErrMigratorUnavailable = errors.New("migrator unavailable")
)

// MissingCallerContextError represents a scoped operation invoked with no caller identity
type MissingCallerContextError struct {
	Operation string
}

func (e *MissingCallerContextError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s requires a caller identity but none was resolvable", e.Operation)
	}
	return "no caller identity was resolvable"
}

func (e *MissingCallerContextError) Is(target error) bool {
	return target == ErrMissingCallerContext
}

// EntityConflictError represents a cross-scope claim on one entity name
type EntityConflictError struct {
	EntityName string
	OwnerScope string
	ClaimScope string
}

func (e *EntityConflictError) Error() string {
	return fmt.Sprintf("entity %q is already registered by scope %q and cannot be claimed by scope %q",
		e.EntityName, e.OwnerScope, e.ClaimScope)
}

func (e *EntityConflictError) Is(target error) bool {
	return target == ErrEntityConflict
}

// TableNameConflictError represents two entities resolving to one table name
type TableNameConflictError struct {
	TableName   string
	OwnerEntity string
	ClaimEntity string
}

func (e *TableNameConflictError) Error() string {
	return fmt.Sprintf("table %q is already owned by entity %q and cannot be claimed by entity %q",
		e.TableName, e.OwnerEntity, e.ClaimEntity)
}

func (e *TableNameConflictError) Is(target error) bool {
	return target == ErrTableNameConflict
}

// EngineNotInitializedError represents an operation that reached the engine
// before initialization completed
type EngineNotInitializedError struct {
	Operation string
}

func (e *EngineNotInitializedError) Error() string {
	return fmt.Sprintf("%s reached the engine before initialization completed", e.Operation)
}

func (e *EngineNotInitializedError) Is(target error) bool {
	return target == ErrEngineNotInitialized
}

// MigratorUnavailableError represents a migration request against an engine
// build without the optional migration capability
type MigratorUnavailableError struct {
	Scope string
}

func (e *MigratorUnavailableError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("scope %q requested migrations but the engine has no migration capability", e.Scope)
	}
	return "the engine has no migration capability"
}

func (e *MigratorUnavailableError) Is(target error) bool {
	return target == ErrMigratorUnavailable
}

// Helper functions for creating errors

// NewMissingCallerContextError creates a new MissingCallerContextError
func NewMissingCallerContextError(operation string) error {
	return &MissingCallerContextError{Operation: operation}
}

// NewEntityConflictError creates a new EntityConflictError
func NewEntityConflictError(entityName, ownerScope, claimScope string) error {
	return &EntityConflictError{EntityName: entityName, OwnerScope: ownerScope, ClaimScope: claimScope}
}

// NewTableNameConflictError creates a new TableNameConflictError
func NewTableNameConflictError(tableName, ownerEntity, claimEntity string) error {
	return &TableNameConflictError{TableName: tableName, OwnerEntity: ownerEntity, ClaimEntity: claimEntity}
}

// NewEngineNotInitializedError creates a new EngineNotInitializedError
func NewEngineNotInitializedError(operation string) error {
	return &EngineNotInitializedError{Operation: operation}
}

// NewMigratorUnavailableError creates a new MigratorUnavailableError
func NewMigratorUnavailableError(scope string) error {
	return &MigratorUnavailableError{Scope: scope}
}

// IsMissingCallerContext checks if an error is a missing caller context error
func IsMissingCallerContext(err error) bool {
	return errors.Is(err, ErrMissingCallerContext)
}

// IsEntityConflict checks if an error is an entity conflict error
func IsEntityConflict(err error) bool {
	return errors.Is(err, ErrEntityConflict)
}

// IsTableNameConflict checks if an error is a table name conflict error
func IsTableNameConflict(err error) bool {
	return errors.Is(err, ErrTableNameConflict)
}

// IsEngineNotInitialized checks if an error is an engine not initialized error
func IsEngineNotInitialized(err error) bool {
	return errors.Is(err, ErrEngineNotInitialized)
}

// IsMigratorUnavailable checks if an error is a migrator unavailable error
func IsMigratorUnavailable(err error) bool {
	return errors.Is(err, ErrMigratorUnavailable)
}
