package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/blob"
	"agro-crm/internal/database"
	"agro-crm/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Filter is a list query parameter. Numeric filters reject anything but a
// positive integer with a 400.
type Filter struct {
	Param   string
	Numeric bool
	Apply   func(db *gorm.DB, value any) *gorm.DB
}

// Binding describes one entity to the generic CRUD service.
//
// Build and Patch run inside the write transaction and must check every
// referenced entity through tx. Cascade removes the entity and what it owns;
// when nil the row is deleted alone.
type Binding[M, C, U, R any] struct {
	Entity  string
	Order   string
	Filters []Filter

	Build   func(ctx context.Context, tx *gorm.DB, req C) (*M, error)
	Patch   func(ctx context.Context, tx *gorm.DB, m *M, req U) error
	Render  func(m *M) R
	ID      func(m *M) uint
	Cascade func(tx *gorm.DB, id uint) (*repository.Removed, error)
}

// CRUD is the Entity Store for a model M with create request C, update request U and response R.
type CRUD[M, C, U, R any] struct {
	db    *gorm.DB
	repo  *repository.Repository[M]
	blobs blob.Store
	b     Binding[M, C, U, R]
}

func NewCRUD[M, C, U, R any](db *gorm.DB, blobs blob.Store, b Binding[M, C, U, R]) *CRUD[M, C, U, R] {
	return &CRUD[M, C, U, R]{db: db, repo: repository.New[M](db), blobs: blobs, b: b}
}

func (s *CRUD[M, C, U, R]) Entity() string { return s.b.Entity }

func (s *CRUD[M, C, U, R]) render(list []M) []R {
	out := make([]R, 0, len(list))
	for i := range list {
		out = append(out, s.b.Render(&list[i]))
	}
	return out
}

// List applies the binding's filters from query; unknown parameters are ignored.
func (s *CRUD[M, C, U, R]) List(ctx context.Context, query map[string]string) ([]R, error) {
	scopes := make([]repository.Scope, 0, len(s.b.Filters)+1)
	for _, f := range s.b.Filters {
		raw := strings.TrimSpace(query[f.Param])
		if raw == "" {
			continue
		}
		var value any = raw
		if f.Numeric {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				return nil, apierror.Validation("%s must be a positive integer", f.Param)
			}
			value = uint(id)
		}
		apply := f.Apply
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return apply(db, value) })
	}
	if s.b.Order != "" {
		scopes = append(scopes, repository.OrderBy(s.b.Order))
	}

	list, err := s.repo.List(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.b.Entity, err)
	}
	return s.render(list), nil
}

func (s *CRUD[M, C, U, R]) Get(ctx context.Context, id uint) (R, error) {
	var zero R
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, notFound(err, s.b.Entity)
	}
	return s.b.Render(m), nil
}

func (s *CRUD[M, C, U, R]) Create(ctx context.Context, actor *uint, req C) (R, error) {
	var (
		zero R
		m    *M
	)
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		m, err = s.b.Build(ctx, tx, req)
		if err != nil {
			return err
		}
		return s.repo.WithTx(tx).Create(ctx, m)
	})
	if err != nil {
		return zero, err
	}

	id := s.b.ID(m)
	database.CreateAuditLog(ctx, s.db, actor, s.b.Entity, id, "create", "")
	log.Info().Str("entity", s.b.Entity).Uint("id", id).Msg("created")
	return s.b.Render(m), nil
}

func (s *CRUD[M, C, U, R]) Update(ctx context.Context, actor *uint, id uint, req U) (R, error) {
	var (
		zero R
		m    *M
	)
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		m, err = repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, s.b.Entity)
		}
		if err := s.b.Patch(ctx, tx, m, req); err != nil {
			return err
		}
		return repo.Save(ctx, m)
	})
	if err != nil {
		return zero, err
	}

	database.CreateAuditLog(ctx, s.db, actor, s.b.Entity, id, "update", "")
	return s.b.Render(m), nil
}

// Delete removes the entity and everything it owns in one transaction,
// then drops the photo objects of removed visits.
func (s *CRUD[M, C, U, R]) Delete(ctx context.Context, actor *uint, id uint) (*repository.Removed, error) {
	var rm *repository.Removed
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.NotFound(s.b.Entity)
		}
		if s.b.Cascade != nil {
			rm, err = s.b.Cascade(tx, id)
			return err
		}
		if err := tx.Delete(new(M), id).Error; err != nil {
			return err
		}
		rm = &repository.Removed{Counts: map[string]int{s.b.Entity: 1}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	removeBlobs(ctx, s.blobs, rm.PhotoKeys)
	database.CreateAuditLog(ctx, s.db, actor, s.b.Entity, id, "delete", fmt.Sprint(rm.Counts))
	log.Info().Str("entity", s.b.Entity).Uint("id", id).Interface("removed", rm.Counts).Msg("deleted")
	return rm, nil
}
