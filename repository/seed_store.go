package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// GormSeedStore executes seeding statements on a dedicated connection pool.
type GormSeedStore struct {
	db *gorm.DB
}

func NewGormSeedStore(db *gorm.DB) *GormSeedStore {
	return &GormSeedStore{db: db}
}

// HasRows reports whether table holds at least one row.
func (s *GormSeedStore) HasRows(ctx context.Context, table string) (bool, error) {
	var exists bool
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", quoteIdent(table))
	if err := s.db.WithContext(ctx).Raw(q).Row().Scan(&exists); err != nil {
		return false, fmt.Errorf("check rows in %s: %w", table, err)
	}
	return exists, nil
}

// Exec runs one statement. Without args the SQL is sent verbatim.
func (s *GormSeedStore) Exec(ctx context.Context, sql string, args ...any) error {
	return s.db.WithContext(ctx).Exec(sql, args...).Error
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
