package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lunalog/lunalog/internal/export"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrInvalidHashType = errors.New("invalid hash type")

// ExportCommand returns the stats export command.
func ExportCommand(deps *CLIDependencies) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export per-user stats to CSV and SQLite files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "exports",
				Usage:   "Base output directory for export files",
			},
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Formats to write (sqlite, csv); all when omitted",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Value:   "Lunalog Export",
				Usage:   "Export description",
			},
			&cli.StringFlag{
				Name:    "salt",
				Aliases: []string{"s"},
				Usage:   "Salt for hashing user IDs; IDs are exported as-is when empty",
			},
			&cli.StringFlag{
				Name:    "hash-type",
				Aliases: []string{"t"},
				Usage:   "Hash algorithm to use (argon2id or sha256)",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Number of concurrent hash operations",
				Value:   1,
			},
			&cli.UintFlag{
				Name:    "iterations",
				Aliases: []string{"i"},
				Usage:   "Number of hash iterations",
			},
			&cli.UintFlag{
				Name:    "memory",
				Aliases: []string{"m"},
				Usage:   "Memory to use for Argon2id in MB",
			},
		},
		Action: handleExport(deps),
	}
}

// handleExport handles the 'export' command.
func handleExport(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := exportConfig(c)
		if err != nil {
			return err
		}

		timestamp := time.Now().UTC().Format("2006-01-02_150405")
		outDir := filepath.Join(c.String("output"), timestamp)

		manifest, err := export.New(deps.DB, outDir, cfg, deps.Logger).ExportAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to export data: %w", err)
		}

		deps.Logger.Info("Export complete",
			zap.String("dir", outDir),
			zap.Int("records", manifest.Records),
			zap.Bool("anonymized", manifest.Anonymized))

		return nil
	}
}

// exportConfig builds the export configuration from flags, prompting for
// hash parameters that were left unset when a salt is given.
func exportConfig(c *cli.Command) (*export.Config, error) {
	cfg := &export.Config{
		Description: c.String("description"),
		Salt:        c.String("salt"),
		HashType:    export.HashType(c.String("hash-type")),
		Concurrency: int(c.Int("concurrency")),
		Iterations:  uint32(c.Uint("iterations")), //nolint:gosec // -
		Memory:      uint32(c.Uint("memory")),     //nolint:gosec // -
	}

	for _, format := range c.StringSlice("format") {
		cfg.Formats = append(cfg.Formats, export.Format(format))
	}

	if cfg.Salt == "" {
		return cfg, nil
	}

	switch cfg.HashType {
	case "":
		cfg.HashType = export.HashTypeSHA256
	case export.HashTypeSHA256, export.HashTypeArgon2id:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidHashType, cfg.HashType)
	}

	reader := bufio.NewReader(os.Stdin)

	if cfg.Iterations == 0 {
		defaultIter := "1"
		if cfg.HashType == export.HashTypeArgon2id {
			defaultIter = "16"
		}

		iter, err := promptUint32(reader, "Enter hash iterations", defaultIter)
		if err != nil {
			return nil, fmt.Errorf("failed to read iterations: %w", err)
		}
		cfg.Iterations = iter
	}

	if cfg.Memory == 0 && cfg.HashType == export.HashTypeArgon2id {
		mem, err := promptUint32(reader, "Enter memory usage in MB for Argon2id", "16")
		if err != nil {
			return nil, fmt.Errorf("failed to read memory: %w", err)
		}
		cfg.Memory = mem
	}

	return cfg, nil
}

// promptString prompts for a string value.
func promptString(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt + ": ")

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(input), nil
}

// promptUint32 prompts for a uint32 value with a default.
func promptUint32(reader *bufio.Reader, prompt, defValue string) (uint32, error) {
	val, err := promptString(reader, prompt+" ["+defValue+"]")
	if err != nil {
		return 0, err
	}

	if val == "" {
		val = defValue
	}

	num, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	return uint32(num), nil
}
