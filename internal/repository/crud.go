// Package repository is the gorm data access layer. Repository[T] covers the
// plain CRUD entities; visit queries and ownership cascades live beside it.
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query: filters, ordering, preloads.
type Scope = func(*gorm.DB) *gorm.DB

type Repository[T any] struct {
	db *gorm.DB
}

func New[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) DB() *gorm.DB { return r.db }

// WithTx returns a repository bound to tx.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx}
}

func (r *Repository[T]) Create(ctx context.Context, m *T) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID returns gorm.ErrRecordNotFound when no row matches.
func (r *Repository[T]) FindByID(ctx context.Context, id uint, scopes ...Scope) (*T, error) {
	var m T
	err := r.db.WithContext(ctx).Scopes(scopes...).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	var list []T
	err := r.db.WithContext(ctx).Scopes(scopes...).Find(&list).Error
	return list, err
}

// Save writes every column of m; associations are left alone.
func (r *Repository[T]) Save(ctx context.Context, m *T) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error
}

func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&count).Error
	return count, err
}

func Where(query string, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(query, args...) }
}

func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(order) }
}

func Preload(assoc string, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Preload(assoc, args...) }
}
