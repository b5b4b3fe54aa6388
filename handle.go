/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityscope

import (
	"context"
	"errors"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/entityscope/schema"
)

// RegisteredEntity is one live dynamic registration. Records are created,
// mutated, and removed only from inside the serial executor.
type RegisteredEntity struct {
	scopeKey       string
	scopePrefix    string
	baseEntityName string
	baseTableName  string
	entityName     string
	tableName      string

	descriptor         *schema.Descriptor
	dropTableOnDispose bool

	createdAt  strfmt.DateTime
	updatedAt  strfmt.DateTime
	generation uint64

	handle *Handle
}

// EntityInfo is the read-only view of one live registration.
type EntityInfo struct {
	EntityName string          `json:"entityName"`
	TableName  string          `json:"tableName"`
	CreatedAt  strfmt.DateTime `json:"createdAt"`
	UpdatedAt  strfmt.DateTime `json:"updatedAt"`
}

// Handle represents one live registration. The same handle object is
// returned for every re-registration of the same entity under the same
// scope, and Dispose stays idempotent across all of them.
type Handle struct {
	state      *sharedState
	scopeKey   string
	entityName string
	generation uint64
}

// EntityName returns the namespaced entity name of the registration.
func (h *Handle) EntityName() string { return h.entityName }

// TableName returns the namespaced physical table name currently backing
// the registration.
func (h *Handle) TableName() string {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	if rec, ok := h.state.entities[h.entityName]; ok && rec.generation == h.generation {
		return rec.tableName
	}
	return ""
}

// Dispose releases the registration: the entity leaves the catalog, the
// engine forgets its metadata, and — when the registration asked for it —
// the physical table is dropped. Disposing an entity that is already gone,
// or whose name was re-claimed by a later generation, is a no-op.
func (h *Handle) Dispose(ctx context.Context) error {
	return h.state.executor.Run(ctx, func(ctx context.Context) error {
		h.state.mu.Lock()
		rec, ok := h.state.entities[h.entityName]
		if !ok || rec.scopeKey != h.scopeKey || rec.generation != h.generation {
			h.state.mu.Unlock()
			return nil
		}
		delete(h.state.entities, h.entityName)
		delete(h.state.tableOwner, rec.tableName)
		eng := h.state.eng
		if eng == nil && rec.dropTableOnDispose {
			// Parked until the engine session manager finishes initializing.
			h.state.pendingDrops[rec.tableName] = true
		}
		h.state.mu.Unlock()
		h.state.removeTeardown(h)

		if eng == nil {
			return nil
		}
		if err := eng.Forget(ctx, h.entityName); err != nil {
			return err
		}
		if rec.dropTableOnDispose {
			if err := eng.Exec(ctx, dropTableSQL(rec.tableName)); err != nil {
				return err
			}
		}

		h.state.logger.Debug().
			Str("scope", h.scopeKey).
			Str("entity", h.entityName).
			Str("table", rec.tableName).
			Bool("dropped", rec.dropTableOnDispose).
			Msg("disposed entity")
		return nil
	})
}

// batchHandle releases a batch registration as one unit.
type batchHandle struct {
	handles []*Handle
}

// Handles returns the member handles in registration order.
func (b *batchHandle) Handles() []*Handle { return b.handles }

// Dispose releases every member entity. All members are attempted even if
// some fail; failures are joined.
func (b *batchHandle) Dispose(ctx context.Context) error {
	var errs []error
	for _, h := range b.handles {
		if err := h.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
