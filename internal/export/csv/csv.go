package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lunalog/lunalog/internal/export/types"
)

// FileName is the name of the written file.
const FileName = "stats.csv"

// Exporter writes stats records to a csv file.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export replaces the csv file with the given records.
func (e *Exporter) Export(records []*types.Record) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(types.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(row(record)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func row(r *types.Record) []string {
	return []string{
		r.ID,
		r.JoinDate,
		strconv.Itoa(r.Messages),
		strconv.Itoa(r.VoiceMinutes),
		strconv.Itoa(r.Night),
		strconv.Itoa(r.Morning),
		strconv.Itoa(r.Afternoon),
		strconv.Itoa(r.Evening),
		strconv.Itoa(r.Weekend),
		r.Crew,
		strings.Join(r.Vibes, ";"),
		strconv.Itoa(r.Links),
		strconv.Itoa(r.Score),
	}
}
