package repos

import (
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"marketadmin/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// OpenDB connects with driver ("sqlite" or "pgx"), creates the schema and
// seeds the role table.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.NotValidf("db driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", driver)
	}
	if driver == DriverSQLite {
		// One connection keeps :memory: databases and per-connection pragmas
		// alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "pinging %s", driver)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "creating schema")
	}
	if err := seedRoles(db); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "seeding roles")
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  email_verified_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS roles(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS role_user(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
  PRIMARY KEY (user_id, role_id)
);
CREATE INDEX IF NOT EXISTS idx_role_user_role ON role_user(role_id);

CREATE TABLE IF NOT EXISTS services(
  id TEXT PRIMARY KEY,
  category_name TEXT NOT NULL,
  image TEXT,
  category_type TEXT NOT NULL DEFAULT 'normal' CHECK (category_type IN ('popular','most_demanding','normal')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_services_category_name ON services(category_name);
CREATE INDEX IF NOT EXISTS idx_services_category_type ON services(category_type);

CREATE TABLE IF NOT EXISTS agent_services(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  service_name TEXT NOT NULL,
  short_description TEXT NOT NULL DEFAULT '',
  message_number TEXT NOT NULL DEFAULT '',
  phone_number TEXT NOT NULL DEFAULT '',
  featured_image TEXT,
  banner_image TEXT,
  category_id TEXT REFERENCES services(id) ON DELETE SET NULL,
  hours TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_services_user ON agent_services(user_id);
`

func ensureSchema(db *sqlx.DB) error {
	if db.DriverName() == DriverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	_, err := db.Exec(schema)
	return err
}

func seedRoles(db *sqlx.DB) error {
	for _, name := range []string{domain.RoleAdmin, domain.RoleAgent} {
		if _, err := db.Exec(db.Rebind(`
			INSERT INTO roles(id,name) VALUES(?,?)
			ON CONFLICT(name) DO NOTHING
		`), name, name); err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates an admin account when none exists yet (idempotent).
// Without a password nothing is created.
func SeedAdmin(db *sqlx.DB, email, password string) error {
	var n int
	if err := db.Get(&n, db.Rebind(`
		SELECT COUNT(*) FROM role_user ru JOIN roles r ON r.id = ru.role_id
		WHERE r.name = ?`), domain.RoleAdmin); err != nil {
		return errors.Trace(err)
	}
	if n > 0 {
		return nil
	}
	if password == "" {
		log.Printf("[seed] no admin account exists and ADMIN_PASSWORD is empty; skipping")
		return nil
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Trace(err)
	}
	ts := now()
	id := uuid.NewString()

	tx, err := db.Beginx()
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(tx.Rebind(`
		INSERT INTO users(id,name,email,phone,password_hash,email_verified_at,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?)
	`), id, "Administrator", email, "", string(h), ts, ts, ts); err != nil {
		return errors.Annotatef(err, "inserting admin %s", email)
	}
	if err := attachRole(tx, id, domain.RoleAdmin); err != nil {
		return err
	}
	log.Printf("[seed] created admin account %s", email)
	return tx.Commit()
}
