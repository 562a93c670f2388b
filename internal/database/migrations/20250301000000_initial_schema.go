package migrations

import (
	"context"
	"fmt"

	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.User)(nil),
			(*types.DailyActivity)(nil),
			(*types.ScopedDailyActivity)(nil),
			(*types.Interaction)(nil),
			(*types.Moment)(nil),
			(*types.ChannelOwnership)(nil),
			(*types.RecapRun)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.RecapRun)(nil),
			(*types.ChannelOwnership)(nil),
			(*types.Moment)(nil),
			(*types.Interaction)(nil),
			(*types.ScopedDailyActivity)(nil),
			(*types.DailyActivity)(nil),
			(*types.User)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
