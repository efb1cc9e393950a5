package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
)

type ServiceRepo struct{ db *sqlx.DB }

func NewServiceRepo(db *sqlx.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceCols = `id, category_name, image, category_type, created_at, updated_at`

// Create inserts s. A duplicate category_name surfaces as the driver's
// unique violation (see IsUniqueViolation).
func (r *ServiceRepo) Create(ctx context.Context, s *domain.Service) error {
	ts := now()
	s.CreatedAt, s.UpdatedAt = ts, ts
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO services(id, category_name, image, category_type, created_at, updated_at)
		VALUES(?,?,?,?,?,?)
	`), s.ID, s.CategoryName, s.Image, string(s.CategoryType), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *ServiceRepo) Get(ctx context.Context, id string) (*domain.Service, error) {
	var s domain.Service
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT `+serviceCols+` FROM services WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrServiceNotFound
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &s, nil
}

// ListByType returns every service of the given category type.
func (r *ServiceRepo) ListByType(ctx context.Context, t domain.CategoryType) ([]domain.Service, error) {
	out := []domain.Service{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+serviceCols+` FROM services
		WHERE category_type = ?
		ORDER BY created_at, category_name
	`), string(t))
	return out, errors.Trace(err)
}

// Update writes every mutable column of s. Writing a row's own
// category_name back is allowed by the unique index.
func (r *ServiceRepo) Update(ctx context.Context, s *domain.Service) error {
	s.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE services SET category_name = ?, image = ?, category_type = ?, updated_at = ?
		WHERE id = ?
	`), s.CategoryName, s.Image, string(s.CategoryType), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM services WHERE id = ?`), id)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}
