package database

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
//
// SQLite allows a single writer, so the pool is pinned to one connection.
// Transactions therefore run serialized, which the funding workflow relies on.
func New(dataSourceName string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	dsn := dataSourceName + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		profile_picture TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		linkedin_url TEXT NOT NULL DEFAULT '',
		investment_capacity TEXT NOT NULL DEFAULT '0',
		company_name TEXT NOT NULL DEFAULT '',
		industry TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		occupation TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		profile_completed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	CREATE TABLE IF NOT EXISTS pitches (
		id TEXT NOT NULL PRIMARY KEY,
		entrepreneur_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		raised_amount TEXT NOT NULL DEFAULT '0',
		category TEXT NOT NULL,
		stage TEXT NOT NULL,
		equity_offered REAL,
		status TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		views INTEGER NOT NULL DEFAULT 0,
		deadline DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pitches_entrepreneur ON pitches(entrepreneur_id);
	CREATE INDEX IF NOT EXISTS idx_pitches_status ON pitches(status);
	CREATE INDEX IF NOT EXISTS idx_pitches_category ON pitches(category);
	CREATE INDEX IF NOT EXISTS idx_pitches_created_at ON pitches(created_at);

	-- investor_id is a non-owning back-reference: history survives user deletion.
	CREATE TABLE IF NOT EXISTS pitch_investments (
		pitch_id TEXT NOT NULL REFERENCES pitches(id) ON DELETE CASCADE,
		investor_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		invested_at DATETIME NOT NULL,
		PRIMARY KEY (pitch_id, investor_id)
	);
	CREATE INDEX IF NOT EXISTS idx_pitch_investments_investor ON pitch_investments(investor_id);

	CREATE TABLE IF NOT EXISTS pitch_feedback (
		pitch_id TEXT NOT NULL REFERENCES pitches(id) ON DELETE CASCADE,
		investor_id TEXT NOT NULL,
		message TEXT NOT NULL,
		rating INTEGER,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (pitch_id, investor_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		pitch_id TEXT,
		user_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
