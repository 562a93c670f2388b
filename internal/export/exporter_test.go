package export_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lunalog/lunalog/internal/database/dbtest"
	dbTypes "github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/export"
	exportCSV "github.com/lunalog/lunalog/internal/export/csv"
	exportSQLite "github.com/lunalog/lunalog/internal/export/sqlite"
	"github.com/lunalog/lunalog/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedExporter(t *testing.T, outDir string, cfg *export.Config) *export.Exporter {
	t.Helper()

	db := dbtest.New(t)
	ctx := t.Context()

	joined := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model().User().Upsert(ctx, 1, &joined))
	_, err := db.Service().Vibe().SetChosen(ctx, 1, []string{"music"})
	require.NoError(t, err)

	for range 4 {
		require.NoError(t, db.Model().Activity().AddMessage(ctx, 1, "2025-03-01", enum.BucketNight, true))
	}
	require.NoError(t, db.Model().Activity().AddMessage(ctx, 2, "2025-03-03", enum.BucketMorning, false))

	require.NoError(t, db.Model().Interaction().AddDelta(ctx, dbTypes.InteractionDelta{
		UserID: 1, OtherUserID: 2, Mentions: 1, At: joined,
	}))
	require.NoError(t, db.Model().Interaction().AddDelta(ctx, dbTypes.InteractionDelta{
		UserID: 1, OtherUserID: 3, Replies: 1, At: joined,
	}))
	require.NoError(t, db.Model().Interaction().AddDelta(ctx, dbTypes.InteractionDelta{
		UserID: 3, OtherUserID: 1, VCMinutes: 5, At: joined,
	}))

	return export.New(db, outDir, cfg, zap.NewNop())
}

func TestRecords(t *testing.T) {
	t.Parallel()

	exporter := seedExporter(t, t.TempDir(), &export.Config{})

	records, err := exporter.Records(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []*types.Record{
		{
			ID: "1", JoinDate: "2025-01-02", Messages: 4, Night: 4, Weekend: 4,
			Crew: "Weekend Crew", Vibes: []string{"music"}, Links: 2, Score: 5,
		},
		{ID: "2", Messages: 1, Morning: 1, Crew: "Morning Crew"},
		{ID: "3", Crew: "Mixed", Links: 1, Score: 5},
	}, records)
}

func TestExportAll(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "out")
	exporter := seedExporter(t, outDir, &export.Config{Description: "weekly"})

	manifest, err := exporter.ExportAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, manifest.Records)
	assert.False(t, manifest.Anonymized)

	for _, name := range []string{exportCSV.FileName, exportSQLite.FileName, export.ManifestFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(outDir, export.ManifestFile))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "weekly", decoded["description"])
	assert.Equal(t, export.EngineVersion, decoded["engineVersion"])
	assert.NotContains(t, decoded, "salt")
}

func TestExportAllAnonymized(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	exporter := seedExporter(t, outDir, &export.Config{
		Formats: []export.Format{export.FormatCSV},
		Salt:    "pepper",
	})

	manifest, err := exporter.ExportAll(t.Context())
	require.NoError(t, err)
	assert.True(t, manifest.Anonymized)
	assert.Equal(t, export.HashTypeSHA256, manifest.HashType)

	data, err := os.ReadFile(filepath.Join(outDir, exportCSV.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), export.HashID(1, "pepper", export.HashTypeSHA256, 1, 0))
	assert.NotContains(t, string(data), "\n1,")

	_, err = os.Stat(filepath.Join(outDir, exportSQLite.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestExportAllUnsupportedFormat(t *testing.T) {
	t.Parallel()

	exporter := seedExporter(t, t.TempDir(), &export.Config{Formats: []export.Format{"binary"}})

	_, err := exporter.ExportAll(t.Context())
	require.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
