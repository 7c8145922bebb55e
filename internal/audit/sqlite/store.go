package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"ticketredemption/internal/audit"
	"ticketredemption/internal/audit/sqlite/migrations"
	"ticketredemption/internal/types"
)

const migrationTable = "schema_migrations"

// Store persists redemption audit records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens an audit SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record persists rec and its draws. Recording the same (sender, nonce) twice
// is a no-op, so replayed blocks do not duplicate history.
func (s *Store) Record(ctx context.Context, rec audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if rec.Sender == (common.Address{}) {
		return fmt.Errorf("sender is required")
	}
	if !rec.TicketType.Valid() {
		return fmt.Errorf("ticket type is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO redemptions (
	sender,
	ticket_type,
	quantity,
	nonce_used,
	height,
	created_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (sender, nonce_used) DO NOTHING
`,
		rec.Sender.Hex(),
		int64(rec.TicketType),
		int64(rec.Quantity),
		int64(rec.NonceUsed),
		rec.Height,
		rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record redemption: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record redemption: %w", err)
	}
	if n == 0 {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("record redemption id: %w", err)
	}

	for _, d := range rec.Draws {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO redemption_draws (redemption_id, position, rarity, pool, asset_id)
VALUES (?, ?, ?, ?, ?)
`, id, d.Position, d.Rarity.String(), d.Pool.String(), string(d.AssetID)); err != nil {
			return fmt.Errorf("record draw %d: %w", d.Position, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// ListBySender lists sender's redemptions newest first.
func (s *Store) ListBySender(ctx context.Context, sender common.Address, limit int) ([]audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	ticket_type,
	quantity,
	nonce_used,
	height,
	created_at
FROM redemptions
WHERE sender = ?
ORDER BY nonce_used DESC
LIMIT ?
`, sender.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var (
		records []audit.Record
		ids     []int64
	)
	for rows.Next() {
		var (
			id                     int64
			ticketType, qty, nonce int64
			height, createdAt      int64
		)
		if err := rows.Scan(&id, &ticketType, &qty, &nonce, &height, &createdAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		records = append(records, audit.Record{
			Sender:     sender,
			TicketType: types.TicketType(ticketType),
			Quantity:   uint64(qty),
			NonceUsed:  uint64(nonce),
			Height:     height,
			CreatedAt:  time.UnixMilli(createdAt).UTC(),
		})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemptions: %w", err)
	}
	_ = rows.Close()

	for i, id := range ids {
		draws, err := s.draws(ctx, id)
		if err != nil {
			return nil, err
		}
		records[i].Draws = draws
	}
	return records, nil
}

func (s *Store) draws(ctx context.Context, id int64) ([]audit.Draw, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT position, rarity, pool, asset_id
FROM redemption_draws
WHERE redemption_id = ?
ORDER BY position
`, id)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	defer rows.Close()

	var out []audit.Draw
	for rows.Next() {
		var (
			d            audit.Draw
			rarity, pool string
			assetID      string
		)
		if err := rows.Scan(&d.Position, &rarity, &pool, &assetID); err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		if d.Rarity, err = types.ParseRarity(rarity); err != nil {
			return nil, err
		}
		if d.Pool, err = types.ParsePool(pool); err != nil {
			return nil, err
		}
		d.AssetID = types.AssetID(assetID)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draws: %w", err)
	}
	return out, nil
}

var _ audit.Sink = (*Store)(nil)

// applyMigrations executes each embedded migration at most once.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		up := upSection(string(content))

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	i := strings.Index(content, up)
	if i == -1 {
		return content
	}
	content = content[i+len(up):]
	if j := strings.Index(content, down); j != -1 {
		content = content[:j]
	}
	return content
}
