// Package export writes a per-user stats snapshot to disk.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lunalog/lunalog/internal/database"
	dbTypes "github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/export/csv"
	"github.com/lunalog/lunalog/internal/export/sqlite"
	"github.com/lunalog/lunalog/internal/export/types"
	"github.com/lunalog/lunalog/internal/tracker/crew"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
)

// Formats lists every supported format.
var Formats = []Format{FormatSQLite, FormatCSV}

const (
	// EngineVersion is bumped on breaking changes to the export layout.
	EngineVersion = "1.0.0"
	// ManifestFile describes the export next to the data files.
	ManifestFile = "export_manifest.json"
)

// Config holds the configuration for exports. An empty Salt exports plain user IDs.
type Config struct {
	Description string   `json:"description"`
	Formats     []Format `json:"formats"`
	Salt        string   `json:"-"`
	HashType    HashType `json:"hashType,omitempty"`
	Iterations  uint32   `json:"iterations,omitempty"`
	Memory      uint32   `json:"memory,omitempty"`
	Concurrency int      `json:"-"`
}

// Manifest is written alongside the exported files.
type Manifest struct {
	*Config

	EngineVersion string    `json:"engineVersion"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Records       int       `json:"records"`
	Anonymized    bool      `json:"anonymized"`
}

// Exporter builds stats records from the store and writes them out.
type Exporter struct {
	db     database.Client
	outDir string
	config *Config
	logger *zap.Logger
}

// New creates a new exporter instance. A config without formats exports all of them.
func New(db database.Client, outDir string, config *Config, logger *zap.Logger) *Exporter {
	if len(config.Formats) == 0 {
		config.Formats = Formats
	}
	if config.Salt != "" && config.HashType == "" {
		config.HashType = HashTypeSHA256
	}
	if config.Iterations == 0 {
		config.Iterations = 1
	}

	return &Exporter{
		db:     db,
		outDir: outDir,
		config: config,
		logger: logger.Named("export"),
	}
}

// ExportAll collects every user's stats and writes each configured format.
func (e *Exporter) ExportAll(ctx context.Context) (*Manifest, error) {
	for _, format := range e.config.Formats {
		if !slices.Contains(Formats, format) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
	}

	if err := os.MkdirAll(e.outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	records, err := e.Records(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Collected export records", zap.Int("records", len(records)))

	if e.config.Salt != "" {
		ids := make([]uint64, len(records))
		for i, record := range records {
			ids[i], _ = strconv.ParseUint(record.ID, 10, 64)
		}

		hashes := hashIDs(ids, e.config.Salt, e.config.HashType, e.config.Concurrency,
			e.config.Iterations, e.config.Memory)
		for i, record := range records {
			record.ID = hashes[i]
		}
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for _, format := range e.config.Formats {
		p.Go(func(context.Context) error {
			if err := e.export(format, records); err != nil {
				return fmt.Errorf("failed to export %s format: %w", format, err)
			}
			e.logger.Info("Wrote export", zap.String("format", string(format)))
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Config:        e.config,
		EngineVersion: EngineVersion,
		GeneratedAt:   time.Now().UTC(),
		Records:       len(records),
		Anonymized:    e.config.Salt != "",
	}

	data, err := sonic.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(e.outDir, ManifestFile), data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write export manifest: %w", err)
	}

	return manifest, nil
}

// Records builds one record per known user, ordered by user ID. A user is
// known once they have a profile, activity or an interaction.
func (e *Exporter) Records(ctx context.Context) ([]*types.Record, error) {
	users, err := e.db.Model().User().List(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := e.db.Model().Activity().TotalsByUser(ctx)
	if err != nil {
		return nil, err
	}
	interactions, err := e.db.Model().Interaction().All(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]*types.Record)
	record := func(userID uint64) *types.Record {
		r, ok := byID[userID]
		if !ok {
			r = &types.Record{ID: strconv.FormatUint(userID, 10)}
			byID[userID] = r
		}
		return r
	}

	vibes := e.db.Service().Vibe()
	for _, user := range users {
		r := record(user.UserID)
		if !user.JoinDate.IsZero() {
			r.JoinDate = user.JoinDate.UTC().Format(time.DateOnly)
		}
		r.Vibes = vibes.Resolve(user)
	}

	for _, t := range totals {
		r := record(t.UserID)
		r.Messages = t.Messages
		r.VoiceMinutes = t.VoiceMinutes
		r.Night = t.Night
		r.Morning = t.Morning
		r.Afternoon = t.Afternoon
		r.Evening = t.Evening
		r.Weekend = t.Weekend
	}

	for _, row := range interactions {
		score := row.Score()
		if score <= 0 {
			continue
		}
		r := record(row.UserID)
		r.Links++
		r.Score += score
	}

	ids := make([]uint64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	records := make([]*types.Record, len(ids))
	for i, id := range ids {
		r := byID[id]
		r.Crew = crew.Classify(activityOf(r)).Label()
		records[i] = r
	}

	return records, nil
}

func activityOf(r *types.Record) dbTypes.ActivityTotals {
	return dbTypes.ActivityTotals{
		Messages:     r.Messages,
		VoiceMinutes: r.VoiceMinutes,
		Night:        r.Night,
		Morning:      r.Morning,
		Afternoon:    r.Afternoon,
		Evening:      r.Evening,
		Weekend:      r.Weekend,
	}
}

// export handles exporting data in the specified format.
func (e *Exporter) export(format Format, records []*types.Record) error {
	var exporter interface {
		Export(records []*types.Record) error
	}

	switch format {
	case FormatSQLite:
		exporter = sqlite.New(e.outDir)
	case FormatCSV:
		exporter = csv.New(e.outDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return exporter.Export(records)
}
