package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `u.id,u.name,u.email,u.phone,u.password_hash,u.email_verified_at,u.created_at,u.updated_at`

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users u WHERE `+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if u.Roles, err = r.RoleNames(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `u.id = ?`, id)
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `LOWER(u.email) = LOWER(?)`, email)
}

// RoleNames returns the names of the roles attached to userID, sorted.
func (r *UserRepo) RoleNames(ctx context.Context, userID string) ([]string, error) {
	names := []string{}
	err := r.DB.SelectContext(ctx, &names, r.DB.Rebind(`
		SELECT r.name FROM role_user ru JOIN roles r ON r.id = ru.role_id
		WHERE ru.user_id = ? ORDER BY r.name`), userID)
	return names, errors.Trace(err)
}

// List returns every user with roles loaded.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.DB.SelectContext(ctx, &users, `SELECT `+userCols+` FROM users u ORDER BY u.created_at, u.email`); err != nil {
		return nil, errors.Trace(err)
	}
	return r.withRoles(ctx, users)
}

// ListByRole returns users holding role.
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	var users []domain.User
	if err := r.DB.SelectContext(ctx, &users, r.DB.Rebind(`
		SELECT `+userCols+` FROM users u
		WHERE EXISTS (
		  SELECT 1 FROM role_user ru JOIN roles r ON r.id = ru.role_id
		  WHERE ru.user_id = u.id AND r.name = ?
		)
		ORDER BY u.created_at, u.email`), role); err != nil {
		return nil, errors.Trace(err)
	}
	return r.withRoles(ctx, users)
}

func (r *UserRepo) withRoles(ctx context.Context, users []domain.User) ([]domain.User, error) {
	if users == nil {
		return []domain.User{}, nil
	}
	var rows []struct {
		UserID string `db:"user_id"`
		Name   string `db:"name"`
	}
	if err := r.DB.SelectContext(ctx, &rows, `
		SELECT ru.user_id, r.name FROM role_user ru JOIN roles r ON r.id = ru.role_id
		ORDER BY r.name`); err != nil {
		return nil, errors.Trace(err)
	}
	byUser := make(map[string][]string, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Name)
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}
	return users, nil
}

// CreateWithRole inserts u and attaches role in one transaction.
func (r *UserRepo) CreateWithRole(ctx context.Context, u *domain.User, role string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	u.CreatedAt, u.UpdatedAt = ts, ts
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO users(id,name,email,phone,password_hash,email_verified_at,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?)
	`), u.ID, u.Name, u.Email, u.Phone, u.Hash, u.EmailVerifiedAt, u.CreatedAt, u.UpdatedAt); err != nil {
		return err // callers classify unique violations
	}
	if err := attachRole(tx, u.ID, role); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Trace(err)
	}
	u.Roles = []string{role}
	return nil
}

func attachRole(tx *sqlx.Tx, userID, role string) error {
	res, err := tx.Exec(tx.Rebind(`
		INSERT INTO role_user(user_id, role_id)
		SELECT ?, id FROM roles WHERE name = ?
	`), userID, role)
	if err != nil {
		return errors.Annotatef(err, "attaching role %s", role)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Annotatef(domain.ErrRoleMissing, "attaching role %s", role)
	}
	return nil
}

// Delete removes the user and its role links in one transaction. Listings
// owned by the user go with it.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM role_user WHERE user_id = ?`), id); err != nil {
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM agent_services WHERE user_id = ?`), id); err != nil {
		return errors.Trace(err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return errors.Trace(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return errors.Trace(tx.Commit())
}

// MarkEmailVerified stamps the verification time if the user is still
// unverified. It reports false when no row changed.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id, at string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE users SET email_verified_at = ?, updated_at = ?
		WHERE id = ? AND email_verified_at IS NULL
	`), at, at, id)
	if err != nil {
		return false, errors.Trace(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Trace(err)
	}
	return n == 1, nil
}
