package repositories

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory sqlite database for repository tests.
// The production repositories issue plain $N-placeholder SQL, which
// sqlite accepts natively, so the same queries run unmodified here.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}

func createClientTables(t *testing.T, db *sql.DB) {
	t.Helper()
	mustExec(t, db, `
		CREATE TABLE clients (
			id TEXT PRIMARY KEY,
			machine_id TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			allowed_source_ips TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
}

func createPaymentRequestTables(t *testing.T, db *sql.DB) {
	t.Helper()
	createClientTables(t, db)
	mustExec(t, db, `
		CREATE TABLE payment_requests (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			external_code TEXT NOT NULL,
			description TEXT,
			provider_name TEXT,
			provider_invoice_id TEXT,
			checkout_link TEXT,
			bolt11 TEXT,
			provider_expires_at DATETIME,
			idempotency_key TEXT,
			callback_url TEXT,
			redirect_url TEXT,
			metadata TEXT,
			status_reason TEXT,
			monitor_until DATETIME,
			finalized_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
}

func createPaymentEventTables(t *testing.T, db *sql.DB) {
	t.Helper()
	createPaymentRequestTables(t, db)
	mustExec(t, db, `
		CREATE TABLE payment_events (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			payment_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			created_at DATETIME NOT NULL
		)
	`)
}

func createIdempotencyTables(t *testing.T, db *sql.DB) {
	t.Helper()
	mustExec(t, db, `
		CREATE TABLE idempotency_records (
			client_id TEXT NOT NULL,
			key TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			payment_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (client_id, key)
		)
	`)
}
