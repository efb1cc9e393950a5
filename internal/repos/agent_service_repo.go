package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
)

type AgentServiceRepo struct{ db *sqlx.DB }

func NewAgentServiceRepo(db *sqlx.DB) *AgentServiceRepo { return &AgentServiceRepo{db: db} }

const agentServiceCols = `id, user_id, service_name, short_description, message_number, phone_number,
  featured_image, banner_image, category_id, hours, created_at, updated_at`

func (r *AgentServiceRepo) Create(ctx context.Context, a *domain.AgentService) error {
	ts := now()
	a.CreatedAt, a.UpdatedAt = ts, ts
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO agent_services(`+agentServiceCols+`)
		VALUES(:id, :user_id, :service_name, :short_description, :message_number, :phone_number,
		  :featured_image, :banner_image, :category_id, :hours, :created_at, :updated_at)
	`, a)
	return errors.Trace(err)
}

func (r *AgentServiceRepo) Get(ctx context.Context, id string) (*domain.AgentService, error) {
	var a domain.AgentService
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`SELECT `+agentServiceCols+` FROM agent_services WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAgentServiceNotFound
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &a, nil
}

// List returns listings, restricted to one owner when userID is set.
func (r *AgentServiceRepo) List(ctx context.Context, userID string) ([]domain.AgentService, error) {
	where := `1 = 1`
	args := []any{}
	if userID != "" {
		where += ` AND user_id = ?`
		args = append(args, userID)
	}
	out := []domain.AgentService{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+agentServiceCols+` FROM agent_services
		WHERE `+where+`
		ORDER BY created_at, service_name`), args...)
	return out, errors.Trace(err)
}

func (r *AgentServiceRepo) Update(ctx context.Context, a *domain.AgentService) error {
	a.UpdatedAt = now()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE agent_services SET
		  user_id = :user_id, service_name = :service_name, short_description = :short_description,
		  message_number = :message_number, phone_number = :phone_number,
		  featured_image = :featured_image, banner_image = :banner_image,
		  category_id = :category_id, hours = :hours, updated_at = :updated_at
		WHERE id = :id
	`, a)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAgentServiceNotFound
	}
	return nil
}

func (r *AgentServiceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM agent_services WHERE id = ?`), id)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAgentServiceNotFound
	}
	return nil
}
