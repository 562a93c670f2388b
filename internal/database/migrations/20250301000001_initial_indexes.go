package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Each statement runs on its own so the same migration works on SQLite,
// which refuses multi-statement execs through database/sql.
var initialIndexes = []struct { //nolint:gochecknoglobals // -
	name string
	sql  string
}{
	{"idx_activity_daily_date", "CREATE INDEX IF NOT EXISTS idx_activity_daily_date ON activity_daily (date_key)"},
	{"idx_activity_scoped_daily_category", "CREATE INDEX IF NOT EXISTS idx_activity_scoped_daily_category " +
		"ON activity_scoped_daily (category_id, date_key)"},
	{"idx_interactions_other_user", "CREATE INDEX IF NOT EXISTS idx_interactions_other_user " +
		"ON interactions (other_user_id)"},
	{"idx_moments_user_type", "CREATE INDEX IF NOT EXISTS idx_moments_user_type " +
		"ON moments (user_id, type, created_at)"},
	{"idx_moments_type_time", "CREATE INDEX IF NOT EXISTS idx_moments_type_time ON moments (type, created_at)"},
	{"idx_users_vibes", "CREATE INDEX IF NOT EXISTS idx_users_vibes ON users (user_id) " +
		"WHERE chosen_vibe IS NOT NULL OR inferred_vibe IS NOT NULL"},
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, idx := range initialIndexes {
			if _, err := db.NewRaw(idx.sql).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, idx := range initialIndexes {
			if _, err := db.NewRaw("DROP INDEX IF EXISTS " + idx.name).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}
