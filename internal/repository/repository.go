package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildcontrol/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements create/read/update/delete for one entity type.
// Reads exclude soft-deleted rows unless asked otherwise. Field names in
// filters and updates must be columns of T.
type Repository[T any] struct {
	db         *gorm.DB
	name       string
	columns    map[string]struct{}
	softDelete bool
	log        *zap.Logger
}

type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used to report per-item bulk failures.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New builds a repository for T. It panics if T is not a valid gorm model.
func New[T any](db *gorm.DB, opts ...Option) *Repository[T] {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		panic(fmt.Sprintf("repository: invalid model %T: %v", *new(T), err))
	}

	columns := make(map[string]struct{}, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		columns[name] = struct{}{}
	}

	_, softDelete := any(new(T)).(models.SoftDeletable)

	return &Repository[T]{
		db:         db,
		name:       stmt.Schema.Name,
		columns:    columns,
		softDelete: softDelete,
		log:        o.log,
	}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	c := *r
	c.db = tx
	return &c
}

// SupportsSoftDelete reports whether T carries a deletion marker.
func (r *Repository[T]) SupportsSoftDelete() bool {
	return r.softDelete
}

// Create persists entity and returns it with ID and timestamps populated.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

// CreateBulk creates each entity independently and returns the ones that
// were stored.
func (r *Repository[T]) CreateBulk(ctx context.Context, entities []*T) ([]*T, error) {
	created := make([]*T, 0, len(entities))
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if _, err := r.Create(ctx, entity); err != nil {
			r.log.Warn("bulk create item failed", zap.String("entity", r.name), zap.Error(err))
			continue
		}
		created = append(created, entity)
	}
	return created, nil
}

// Get fetches a live record by ID.
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *Repository[T]) getAny(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.first(r.db.WithContext(ctx).Unscoped(), id)
}

func (r *Repository[T]) first(db *gorm.DB, id uuid.UUID) (*T, error) {
	var entity T
	if err := db.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// GetAll returns one page of records.
func (r *Repository[T]) GetAll(ctx context.Context, page Page, includeDeleted bool) ([]T, error) {
	return r.GetByFilters(ctx, Query{Page: page, IncludeDeleted: includeDeleted})
}

// GetByFilters returns one page of records matching every filter.
func (r *Repository[T]) GetByFilters(ctx context.Context, q Query) ([]T, error) {
	db, err := r.scope(ctx, q.IncludeDeleted, q.Filters)
	if err != nil {
		return nil, err
	}

	order := q.Order
	if order.Field == "" {
		order.Field = "created_at"
	}
	if err := r.checkColumn(order.Field); err != nil {
		return nil, err
	}

	page := q.Page.normalize()
	var out []T
	err = db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: order.Field}, Desc: order.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether a live record matches every filter.
func (r *Repository[T]) Exists(ctx context.Context, filters Filters) (bool, error) {
	n, err := r.CountByFilters(ctx, filters, false)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of records.
func (r *Repository[T]) Count(ctx context.Context, includeDeleted bool) (int64, error) {
	return r.CountByFilters(ctx, nil, includeDeleted)
}

// CountByFilters returns the number of records matching every filter.
func (r *Repository[T]) CountByFilters(ctx context.Context, filters Filters, includeDeleted bool) (int64, error) {
	db, err := r.scope(ctx, includeDeleted, filters)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Update applies a partial update to a live record. The id and created_at
// columns are never written.
func (r *Repository[T]) Update(ctx context.Context, id uuid.UUID, fields Fields) (*T, error) {
	changes := make(map[string]any, len(fields))
	for name, value := range fields {
		if name == "id" || name == "created_at" {
			continue
		}
		if err := r.checkColumn(name); err != nil {
			return nil, err
		}
		changes[name] = value
	}

	entity, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return entity, nil
	}

	if err := r.db.WithContext(ctx).Model(entity).Updates(changes).Error; err != nil {
		return nil, err
	}
	return r.getAny(ctx, id)
}

// UpdateBulk applies each change independently and returns the records that
// were updated.
func (r *Repository[T]) UpdateBulk(ctx context.Context, changes []Change) ([]*T, error) {
	updated := make([]*T, 0, len(changes))
	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		entity, err := r.Update(ctx, ch.ID, ch.Fields)
		if err != nil {
			r.bulkFailure("update", ch.ID, err)
			continue
		}
		updated = append(updated, entity)
	}
	return updated, nil
}

// Delete permanently removes a live record. It reports false when there was
// nothing to delete.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	entity, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Unscoped().Delete(entity)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteBulk permanently removes each live record and returns the IDs that
// were deleted.
func (r *Repository[T]) DeleteBulk(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	deleted := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		ok, err := r.Delete(ctx, id)
		if err != nil {
			r.bulkFailure("delete", id, err)
			continue
		}
		if ok {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// SoftDelete stamps deleted_at on a live record and returns it.
func (r *Repository[T]) SoftDelete(ctx context.Context, id uuid.UUID) (*T, error) {
	if err := r.requireSoftDelete(); err != nil {
		return nil, err
	}

	entity, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(entity).Error; err != nil {
		return nil, err
	}
	return r.getAny(ctx, id)
}

// SoftDeleteBulk soft-deletes each live record and returns the ones that
// were marked.
func (r *Repository[T]) SoftDeleteBulk(ctx context.Context, ids []uuid.UUID) ([]*T, error) {
	if err := r.requireSoftDelete(); err != nil {
		return nil, err
	}
	return r.each(ctx, "soft delete", ids, r.SoftDelete)
}

// Restore clears deleted_at on a record in any state and returns it.
func (r *Repository[T]) Restore(ctx context.Context, id uuid.UUID) (*T, error) {
	if err := r.requireSoftDelete(); err != nil {
		return nil, err
	}

	entity, err := r.getAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Unscoped().Model(entity).UpdateColumn("deleted_at", nil).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// RestoreBulk restores each record and returns the ones that were restored.
func (r *Repository[T]) RestoreBulk(ctx context.Context, ids []uuid.UUID) ([]*T, error) {
	if err := r.requireSoftDelete(); err != nil {
		return nil, err
	}
	return r.each(ctx, "restore", ids, r.Restore)
}

func (r *Repository[T]) each(ctx context.Context, op string, ids []uuid.UUID, fn func(context.Context, uuid.UUID) (*T, error)) ([]*T, error) {
	done := make([]*T, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		entity, err := fn(ctx, id)
		if err != nil {
			r.bulkFailure(op, id, err)
			continue
		}
		done = append(done, entity)
	}
	return done, nil
}

func (r *Repository[T]) bulkFailure(op string, id uuid.UUID, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	r.log.Warn("bulk item failed",
		zap.String("entity", r.name),
		zap.String("op", op),
		zap.Stringer("id", id),
		zap.Error(err))
}

func (r *Repository[T]) scope(ctx context.Context, includeDeleted bool, filters Filters) (*gorm.DB, error) {
	db := r.db.WithContext(ctx).Model(new(T))
	if includeDeleted {
		db = db.Unscoped()
	}
	for _, name := range filters.names() {
		if err := r.checkColumn(name); err != nil {
			return nil, err
		}
		db = db.Where(clause.Eq{Column: clause.Column{Name: name}, Value: filters[name]})
	}
	return db, nil
}

func (r *Repository[T]) checkColumn(name string) error {
	if _, ok := r.columns[name]; !ok {
		return fmt.Errorf("%w: %s has no column %q", ErrUnknownField, r.name, name)
	}
	return nil
}

func (r *Repository[T]) requireSoftDelete() error {
	if !r.softDelete {
		return fmt.Errorf("%w: %s", ErrSoftDeleteUnsupported, r.name)
	}
	return nil
}
