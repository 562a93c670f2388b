package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/leaderboard"
	"github.com/lunalog/lunalog/internal/recap"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// StatsCommands returns the export, recap and leaderboard commands.
func StatsCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		ExportCommand(deps),
		{
			Name:  "recap",
			Usage: "Inspect or publish the weekly recap",
			Commands: []*cli.Command{
				{
					Name:      "show",
					Usage:     "Print the recap for the week ending on DATE (default today)",
					ArgsUsage: "[DATE]",
					Action:    handleRecapShow(deps),
				},
				{
					Name:   "publish",
					Usage:  "Print this week's recap and record it as posted",
					Action: handleRecapPublish(deps),
				},
			},
		},
		{
			Name:      "top",
			Usage:     "Show a leaderboard (chat, voice, night, connections)",
			ArgsUsage: "BOARD",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"n"},
					Usage:   "Number of entries, clamped to the configured range",
				},
			},
			Action: handleTop(deps),
		},
	}
}

// handleRecapShow handles the 'recap show' command.
func handleRecapShow(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		now := time.Now().UTC()
		if c.Args().Len() > 0 {
			day, err := time.Parse(time.DateOnly, c.Args().First())
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDate, c.Args().First())
			}
			now = day
		}

		builder := recap.New(deps.DB, deps.RecapLock, &deps.Config.Bot, deps.Logger)

		data, err := builder.Build(ctx, now)
		if err != nil {
			return err
		}

		return printJSON(data)
	}
}

// handleRecapPublish handles the 'recap publish' command. The recap is
// written to stdout in place of a channel post.
func handleRecapPublish(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		builder := recap.New(deps.DB, deps.RecapLock, &deps.Config.Bot, deps.Logger)

		published, err := builder.Run(ctx, time.Now(), func(_ context.Context, data *recap.Data) (recap.Published, error) {
			if err := printJSON(data); err != nil {
				return recap.Published{}, err
			}
			return recap.Published{ChannelID: deps.Config.Bot.Recap.ChannelID}, nil
		})
		if err != nil {
			return err
		}

		deps.Logger.Info("Recap run finished", zap.Bool("published", published))
		return nil
	}
}

// handleTop handles the 'top' command.
func handleTop(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrBoardRequired
		}

		service := leaderboard.New(deps.DB, deps.Cache, &deps.Config.Bot, deps.Logger)

		board, err := service.Get(ctx, enum.Leaderboard(c.Args().First()), int(c.Int("limit")))
		if err != nil {
			return err
		}

		for _, entry := range board.Entries {
			deps.Logger.Info("Leaderboard entry",
				zap.String("board", string(board.Name)),
				zap.Int("rank", entry.Rank),
				zap.Uint64("userID", entry.UserID),
				zap.Int("value", entry.Value))
		}
		if len(board.Entries) == 0 {
			deps.Logger.Info("Leaderboard is empty", zap.String("board", string(board.Name)))
		}

		return nil
	}
}

func printJSON(v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
