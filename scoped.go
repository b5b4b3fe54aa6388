/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityscope

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/entityscope/engine"
	scoperrors "github.com/suparena/entityscope/errors"
	"github.com/suparena/entityscope/naming"
	"github.com/suparena/entityscope/schema"
)

// Scoped is the per-caller registry surface. Every entity registered through
// a Scoped is namespaced under the caller's prefix; two Scoped instances
// with different keys can never observe or collide with each other's
// entities except through the conflict errors.
type Scoped struct {
	state *sharedState
	key   string
}

// Key returns the raw scope key.
func (s *Scoped) Key() string { return s.key }

// Prefix returns the namespace prefix derived from the scope key.
func (s *Scoped) Prefix() string { return s.state.prefixFor(s.key) }

// RegisterOptions configures one registration.
type RegisterOptions struct {
	// EntityName overrides the descriptor's entity name. A name already
	// carrying the scope's prefix is accepted and not double-prefixed.
	EntityName string
	// TableName overrides the descriptor's table name.
	TableName string
	// EnsureSchema controls the schema sync after registration. Nil means
	// true. This flag is per call and never stored.
	EnsureSchema *bool
	// DropTableOnDispose requests the physical table be dropped when the
	// handle is disposed. On re-registration a nil value preserves the
	// previously stored flag.
	DropTableOnDispose *bool
	// Lifecycle optionally binds the handle to the caller's teardown scope.
	Lifecycle Lifecycle
}

// Bool returns a pointer to v, for use in option literals.
func Bool(v bool) *bool { return &v }

// MigrateOptions configures a scoped migration run.
type MigrateOptions struct {
	// Direction is "up" (default) or "down".
	Direction string
	// Steps limits a down run to the most recent N migrations; zero means
	// all. Ignored for up runs.
	Steps int
	// MigrationsTable overrides the base bookkeeping table name. The scope
	// prefix is applied on top of it either way.
	MigrationsTable string
}

func (s *Scoped) ensureKey(operation string) error {
	if s.key == "" {
		return scoperrors.NewMissingCallerContextError(operation)
	}
	return nil
}

// RegisterEntity registers one entity descriptor under this scope and
// returns its disposable handle. Registering the same entity again under the
// same scope updates it in place and returns the same handle; a different
// scope claiming the same computed names fails with a conflict error.
func (s *Scoped) RegisterEntity(ctx context.Context, desc *schema.Descriptor, opts RegisterOptions) (*Handle, error) {
	if err := s.ensureKey("RegisterEntity"); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, fmt.Errorf("descriptor is required")
	}

	var handle *Handle
	err := s.state.executor.Run(ctx, func(ctx context.Context) error {
		var err error
		handle, err = s.registerOne(ctx, desc, opts, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// RegisterEntities registers a batch of descriptors with per-entity schema
// sync suppressed, followed by one aggregate sync unless opts.EnsureSchema
// is explicitly false. The returned disposable releases all members. A
// failing member unwinds the members registered before it.
func (s *Scoped) RegisterEntities(ctx context.Context, descs []*schema.Descriptor, opts RegisterOptions) (Disposable, error) {
	if err := s.ensureKey("RegisterEntities"); err != nil {
		return nil, err
	}

	batch := &batchHandle{}
	err := s.state.executor.Run(ctx, func(ctx context.Context) error {
		perEntity := RegisterOptions{
			EnsureSchema:       Bool(false),
			DropTableOnDispose: opts.DropTableOnDispose,
			Lifecycle:          opts.Lifecycle,
		}

		var names []string
		for _, desc := range descs {
			h, err := s.registerOne(ctx, desc, perEntity, false)
			if err != nil {
				_ = batch.Dispose(ctx)
				return err
			}
			batch.handles = append(batch.handles, h)
			names = append(names, h.EntityName())
		}

		if opts.EnsureSchema != nil && !*opts.EnsureSchema {
			return nil
		}
		eng := s.state.engine()
		if eng == nil {
			return nil
		}
		return eng.SyncSchema(ctx, engine.SyncOptions{Entities: names})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ListEntities returns the live registrations owned by this scope. It is a
// pure read and does not enter the serial executor.
func (s *Scoped) ListEntities() ([]EntityInfo, error) {
	if err := s.ensureKey("ListEntities"); err != nil {
		return nil, err
	}

	s.state.mu.RLock()
	var infos []EntityInfo
	for _, rec := range s.state.entities {
		if rec.scopeKey != s.key {
			continue
		}
		infos = append(infos, EntityInfo{
			EntityName: rec.entityName,
			TableName:  rec.tableName,
			CreatedAt:  rec.createdAt,
			UpdatedAt:  rec.updatedAt,
		})
	}
	s.state.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].EntityName < infos[j].EntityName })
	return infos, nil
}

// Migrate runs the engine's migrations with bookkeeping redirected into this
// scope's namespace. The engine's previous migration configuration is
// restored regardless of outcome. Engines without the Migrator capability
// fail with MigratorUnavailable.
func (s *Scoped) Migrate(ctx context.Context, opts MigrateOptions) error {
	if err := s.ensureKey("Migrate"); err != nil {
		return err
	}

	return s.state.executor.Run(ctx, func(ctx context.Context) error {
		eng, err := s.state.ensureEngine(ctx)
		if err != nil {
			return err
		}
		migrator, ok := eng.(engine.Migrator)
		if !ok {
			return scoperrors.NewMigratorUnavailableError(s.key)
		}

		prefix := s.state.prefixFor(s.key)
		base := opts.MigrationsTable
		if base == "" {
			base = migrator.MigrationsTable()
		}
		base = naming.StripPrefix(base, prefix)

		previous := migrator.MigrationsTable()
		migrator.SetMigrationsTable(naming.Join(prefix, base))
		defer migrator.SetMigrationsTable(previous)

		switch strings.ToLower(opts.Direction) {
		case "", "up":
			err = migrator.MigrateUp(ctx)
		case "down":
			err = migrator.MigrateDown(ctx, opts.Steps)
		default:
			return fmt.Errorf("unknown migration direction %q", opts.Direction)
		}
		if err != nil {
			return fmt.Errorf("migrate scope %q: %w", s.key, err)
		}

		s.state.logger.Debug().
			Str("scope", s.key).
			Str("direction", strings.ToLower(opts.Direction)).
			Msg("migrations applied")
		return nil
	})
}

// EnsureSchema synchronizes the schema of this scope's entities.
func (s *Scoped) EnsureSchema(ctx context.Context, opts EnsureSchemaOptions) error {
	if err := s.ensureKey("EnsureSchema"); err != nil {
		return err
	}

	return s.state.executor.Run(ctx, func(ctx context.Context) error {
		s.state.mu.RLock()
		var names []string
		for name, rec := range s.state.entities {
			if rec.scopeKey == s.key {
				names = append(names, name)
			}
		}
		s.state.mu.RUnlock()
		if len(names) == 0 {
			return nil
		}

		eng, err := s.state.ensureEngine(ctx)
		if err != nil {
			return err
		}
		return eng.SyncSchema(ctx, engine.SyncOptions{Entities: names})
	})
}

// ORM passes through to the shared engine.
func (s *Scoped) ORM(ctx context.Context) (engine.Engine, error) {
	return s.state.ensureEngine(ctx)
}

// Session passes through to a forked entity-level session.
func (s *Scoped) Session(ctx context.Context, opts engine.SessionOptions) (engine.Session, error) {
	eng, err := s.state.ensureEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Session(opts)
}

// SQLSession passes through to a forked raw SQL session.
func (s *Scoped) SQLSession(ctx context.Context, opts engine.SessionOptions) (engine.SQLSession, error) {
	eng, err := s.state.ensureEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.SQLSession(opts)
}

// registerOne performs one registration inside the executor.
func (s *Scoped) registerOne(ctx context.Context, desc *schema.Descriptor, opts RegisterOptions, allowSync bool) (*Handle, error) {
	st := s.state
	prefix := st.prefixFor(s.key)

	baseEntity := opts.EntityName
	if baseEntity == "" {
		baseEntity = desc.EntityName
	}
	if baseEntity == "" {
		return nil, fmt.Errorf("descriptor has no entity name and none was supplied")
	}
	baseEntity = naming.StripPrefix(baseEntity, prefix)

	baseTable := opts.TableName
	if baseTable == "" {
		baseTable = desc.TableName
	}
	if baseTable == "" {
		baseTable = baseEntity
	}
	baseTable = naming.StripPrefix(baseTable, prefix)

	entityName := naming.Join(prefix, baseEntity)
	tableName := naming.Join(prefix, baseTable)

	st.mu.Lock()
	rec := st.entities[entityName]
	if rec != nil && rec.scopeKey != s.key {
		owner := rec.scopeKey
		st.mu.Unlock()
		return nil, scoperrors.NewEntityConflictError(entityName, owner, s.key)
	}
	if owner, claimed := st.tableOwner[tableName]; claimed && owner != entityName {
		st.mu.Unlock()
		return nil, scoperrors.NewTableNameConflictError(tableName, owner, entityName)
	}

	now := strfmt.DateTime(time.Now().UTC())
	rewritten := schema.Rewrite(desc, entityName, tableName)

	if rec == nil {
		st.generation++
		rec = &RegisteredEntity{
			scopeKey:       s.key,
			scopePrefix:    prefix,
			baseEntityName: baseEntity,
			baseTableName:  baseTable,
			entityName:     entityName,
			tableName:      tableName,
			descriptor:     rewritten,
			createdAt:      now,
			updatedAt:      now,
			generation:     st.generation,
		}
		if opts.DropTableOnDispose != nil {
			rec.dropTableOnDispose = *opts.DropTableOnDispose
		}
		rec.handle = &Handle{
			state:      st,
			scopeKey:   s.key,
			entityName: entityName,
			generation: rec.generation,
		}
		st.entities[entityName] = rec
		st.tableOwner[tableName] = entityName
		// Captured under the lock that inserted the record: initialization
		// seeds and publishes the engine under this same lock, so the
		// entity is either already in the seed pass or pushed right here.
		eng := st.eng
		st.mu.Unlock()

		if err := s.pushToEngine(ctx, eng, rec, false, opts.EnsureSchema, allowSync); err != nil {
			s.rollback(ctx, rec)
			return nil, err
		}

		if opts.Lifecycle != nil {
			opts.Lifecycle.OnTeardown(rec.handle.Dispose)
		}
		st.addTeardown(rec.handle, rec.handle.Dispose)

		st.logger.Debug().
			Str("scope", s.key).
			Str("entity", entityName).
			Str("table", tableName).
			Msg("registered entity")
		return rec.handle, nil
	}

	// Same-scope re-registration: update in place. Explicit options win;
	// unspecified options preserve the previously stored values.
	if tableName != rec.tableName {
		delete(st.tableOwner, rec.tableName)
		st.tableOwner[tableName] = entityName
		rec.tableName = tableName
		rec.baseTableName = baseTable
	}
	if opts.DropTableOnDispose != nil {
		rec.dropTableOnDispose = *opts.DropTableOnDispose
	}
	rec.descriptor = rewritten
	rec.updatedAt = now
	handle := rec.handle
	eng := st.eng
	st.mu.Unlock()

	if err := s.pushToEngine(ctx, eng, rec, true, opts.EnsureSchema, allowSync); err != nil {
		return nil, err
	}

	st.logger.Debug().
		Str("scope", s.key).
		Str("entity", entityName).
		Str("table", tableName).
		Msg("re-registered entity")
	return handle, nil
}

// pushToEngine forwards a registration to the engine the caller captured
// alongside its catalog insert. A nil engine means initialization has not
// published one yet; the init seed pass covers the entity instead.
func (s *Scoped) pushToEngine(ctx context.Context, eng engine.Engine, rec *RegisteredEntity, reset bool, ensure *bool, allowSync bool) error {
	if eng == nil {
		return nil
	}
	if err := eng.Discover(ctx, rec.descriptor, reset); err != nil {
		return fmt.Errorf("discover entity %q: %w", rec.entityName, err)
	}
	if !allowSync || (ensure != nil && !*ensure) {
		return nil
	}
	if err := eng.SyncSchema(ctx, engine.SyncOptions{Entities: []string{rec.entityName}}); err != nil {
		return fmt.Errorf("ensure schema for entity %q: %w", rec.entityName, err)
	}
	return nil
}

// rollback unwinds a failed first registration so partial failures leave no
// catalog residue.
func (s *Scoped) rollback(ctx context.Context, rec *RegisteredEntity) {
	st := s.state
	st.mu.Lock()
	delete(st.entities, rec.entityName)
	delete(st.tableOwner, rec.tableName)
	eng := st.eng
	st.mu.Unlock()

	if eng != nil {
		_ = eng.Forget(ctx, rec.entityName)
	}
}
