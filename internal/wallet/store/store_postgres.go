package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/platform/sentinel"
)

// PostgresStore persists wallet records in PostgreSQL. Per-address atomicity
// comes from single-statement upserts and conditional updates.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed wallet store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const walletColumns = `address, fingerprint, verified, created_at, updated_at, verified_at`

func (s *PostgresStore) Upsert(ctx context.Context, address models.Address, fingerprint string, now time.Time) (*models.WalletRecord, bool, error) {
	// xmax is zero only for freshly inserted tuples.
	query := `
		INSERT INTO wallets (address, fingerprint, verified, created_at, updated_at, verified_at)
		VALUES ($1, $2, FALSE, $3, $3, NULL)
		ON CONFLICT (address) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint,
		    verified = FALSE,
		    verified_at = NULL,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + walletColumns + `, (xmax = 0) AS inserted
	`
	var created bool
	record, err := scanWallet(s.db.QueryRowContext(ctx, query, address.String(), fingerprint, now.UTC()), &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert wallet: %w", err)
	}
	return record, created, nil
}

func (s *PostgresStore) Get(ctx context.Context, address models.Address) (*models.WalletRecord, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1`
	record, err := scanWallet(s.db.QueryRowContext(ctx, query, address.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) SetVerified(ctx context.Context, address models.Address, expectedFingerprint string, at time.Time) (*models.WalletRecord, error) {
	query := `
		UPDATE wallets
		SET verified = TRUE,
		    verified_at = GREATEST($3::timestamptz, created_at),
		    updated_at = GREATEST($3::timestamptz, created_at)
		WHERE address = $1 AND fingerprint = $2
		RETURNING ` + walletColumns
	record, err := scanWallet(s.db.QueryRowContext(ctx, query, address.String(), expectedFingerprint, at.UTC()))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set wallet verified: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE address = $1)`, address.String()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("probe wallet: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
	}
	return nil, fmt.Errorf("wallet %s fingerprint changed: %w", address, sentinel.ErrConflict)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.WalletRecord, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY created_at DESC, address ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []*models.WalletRecord
	for rows.Next() {
		record, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE verified) FROM wallets`,
	).Scan(&stats.TotalWallets, &stats.VerifiedWallets)
	if err != nil {
		return models.Stats{}, fmt.Errorf("count wallets: %w", err)
	}
	return stats, nil
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type walletRow interface {
	Scan(dest ...any) error
}

// scanWallet reads walletColumns, plus the inserted flag when one is passed.
func scanWallet(row walletRow, inserted ...*bool) (*models.WalletRecord, error) {
	var (
		record     models.WalletRecord
		address    string
		verifiedAt sql.NullTime
	)
	dest := []any{&address, &record.Fingerprint, &record.Verified, &record.CreatedAt, &record.UpdatedAt, &verifiedAt}
	if len(inserted) > 0 {
		dest = append(dest, inserted[0])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	record.Address = models.Address(address)
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		record.VerifiedAt = &t
	}
	return &record, nil
}
