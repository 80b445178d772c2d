package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/platform/sentinel"
)

// gormWallet is the SQLite row. Timestamps are managed by the store, not GORM.
type gormWallet struct {
	Address     string     `gorm:"primaryKey;size:42"`
	Fingerprint string     `gorm:"not null"`
	Verified    bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"`
	VerifiedAt  *time.Time
}

func (gormWallet) TableName() string { return "wallets" }

// GormStore persists wallet records in SQLite through GORM, for single-node
// deployments. A single connection serializes all transactions.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at path and migrates it.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*GormStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return NewGorm(db)
}

// NewGorm wraps an open GORM handle and runs AutoMigrate.
func NewGorm(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&gormWallet{}); err != nil {
		return nil, fmt.Errorf("migrate wallets: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Upsert(ctx context.Context, address models.Address, fingerprint string, now time.Time) (*models.WalletRecord, bool, error) {
	now = now.UTC()
	var (
		row     gormWallet
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("address = ?", address.String()).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = gormWallet{
				Address:     address.String(),
				Fingerprint: fingerprint,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			created = true
			return tx.Create(&row).Error
		case err != nil:
			return err
		}

		row.Fingerprint = fingerprint
		row.Verified = false
		row.VerifiedAt = nil
		row.UpdatedAt = now
		return tx.Model(&gormWallet{}).Where("address = ?", row.Address).
			Select("fingerprint", "verified", "verified_at", "updated_at").
			Updates(&row).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert wallet: %w", err)
	}
	return toRecord(&row), created, nil
}

func (s *GormStore) Get(ctx context.Context, address models.Address) (*models.WalletRecord, error) {
	var row gormWallet
	err := s.db.WithContext(ctx).Where("address = ?", address.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	return toRecord(&row), nil
}

func (s *GormStore) SetVerified(ctx context.Context, address models.Address, expectedFingerprint string, at time.Time) (*models.WalletRecord, error) {
	var row gormWallet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("address = ?", address.String()).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("wallet %s: %w", address, sentinel.ErrNotFound)
			}
			return err
		}
		if row.Fingerprint != expectedFingerprint {
			return fmt.Errorf("wallet %s fingerprint changed: %w", address, sentinel.ErrConflict)
		}

		verifiedAt := notBefore(at.UTC(), row.CreatedAt.UTC())
		res := tx.Model(&gormWallet{}).
			Where("address = ? AND fingerprint = ?", address.String(), expectedFingerprint).
			Updates(map[string]any{"verified": true, "verified_at": verifiedAt, "updated_at": verifiedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("wallet %s fingerprint changed: %w", address, sentinel.ErrConflict)
		}
		return tx.Where("address = ?", address.String()).Take(&row).Error
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("set wallet verified: %w", err)
	}
	return toRecord(&row), nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]*models.WalletRecord, error) {
	var rows []gormWallet
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	out := make([]*models.WalletRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toRecord(&rows[i]))
	}
	// SQLite stores timestamps as text; sort in Go so ordering follows time, not formatting.
	sortNewestFirst(out)
	return out, nil
}

func (s *GormStore) Stats(ctx context.Context) (models.Stats, error) {
	var total, verified int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&gormWallet{}).Count(&total).Error; err != nil {
		return models.Stats{}, fmt.Errorf("count wallets: %w", err)
	}
	if err := db.Model(&gormWallet{}).Where("verified = ?", true).Count(&verified).Error; err != nil {
		return models.Stats{}, fmt.Errorf("count verified wallets: %w", err)
	}
	return models.Stats{TotalWallets: int(total), VerifiedWallets: int(verified)}, nil
}

// Health pings the underlying connection.
func (s *GormStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the SQLite connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(row *gormWallet) *models.WalletRecord {
	record := &models.WalletRecord{
		Address:     models.Address(row.Address),
		Fingerprint: row.Fingerprint,
		Verified:    row.Verified,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.VerifiedAt != nil {
		t := row.VerifiedAt.UTC()
		record.VerifiedAt = &t
	}
	return record
}
