package csv_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	exportCSV "github.com/lunalog/lunalog/internal/export/csv"
	"github.com/lunalog/lunalog/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []*types.Record
		want    [][]string
	}{
		{
			name: "basic export",
			records: []*types.Record{
				{
					ID: "111", JoinDate: "2025-01-02", Messages: 12, VoiceMinutes: 90,
					Night: 100, Weekend: 40, Crew: "Night Crew", Vibes: []string{"chat", "game"},
					Links: 2, Score: 17,
				},
				{ID: "222", Crew: "Mixed"},
			},
			want: [][]string{
				types.Header,
				{"111", "2025-01-02", "12", "90", "100", "0", "0", "0", "40", "Night Crew", "chat;game", "2", "17"},
				{"222", "", "0", "0", "0", "0", "0", "0", "0", "Mixed", "", "0", "0"},
			},
		},
		{
			name:    "empty records",
			records: nil,
			want:    [][]string{types.Header},
		},
		{
			name:    "special characters",
			records: []*types.Record{{ID: "333", Crew: "Mixed", Vibes: []string{"a, \"b\""}}},
			want: [][]string{
				types.Header,
				{"333", "", "0", "0", "0", "0", "0", "0", "0", "Mixed", "a, \"b\"", "0", "0"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tempDir := t.TempDir()

			require.NoError(t, exportCSV.New(tempDir).Export(tt.records))
			assert.Equal(t, tt.want, readCSV(t, filepath.Join(tempDir, exportCSV.FileName)))
		})
	}
}

func TestExporter_ExistingFile(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, exportCSV.FileName)
	require.NoError(t, os.WriteFile(path, []byte("existing content\n"), 0o600))

	records := []*types.Record{{ID: "1", Crew: "Mixed"}}
	require.NoError(t, exportCSV.New(tempDir).Export(records))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][0])
}
