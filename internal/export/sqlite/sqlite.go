package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lunalog/lunalog/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	// FileName is the name of the written database.
	FileName = "stats.db"
	// Table holds one row per user.
	Table = "user_stats"

	batchSize = 1000
)

// Exporter writes stats records to a standalone SQLite database.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export replaces the database file with the given records.
func (e *Exporter) Export(records []*types.Record) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	err = sqlitex.ExecuteScript(conn, `
		CREATE TABLE `+Table+` (
			id TEXT PRIMARY KEY,
			join_date TEXT,
			messages INTEGER NOT NULL,
			voice_minutes INTEGER NOT NULL,
			night INTEGER NOT NULL,
			morning INTEGER NOT NULL,
			afternoon INTEGER NOT NULL,
			evening INTEGER NOT NULL,
			weekend INTEGER NOT NULL,
			crew TEXT NOT NULL,
			vibes TEXT NOT NULL,
			links INTEGER NOT NULL,
			score INTEGER NOT NULL
		);
		CREATE INDEX idx_`+Table+`_score ON `+Table+` (score DESC);
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	insert := "INSERT INTO " + Table + " (" + strings.Join(types.Header, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(types.Header)), ", ") + ")"

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := insertBatch(conn, insert, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch writes records in one transaction.
func insertBatch(conn *sqlite.Conn, insert string, records []*types.Record) (err error) {
	defer sqlitex.Save(conn)(&err)

	for _, r := range records {
		var joinDate any
		if r.JoinDate != "" {
			joinDate = r.JoinDate
		}

		err = sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{
			Args: []any{
				r.ID, joinDate, r.Messages, r.VoiceMinutes,
				r.Night, r.Morning, r.Afternoon, r.Evening, r.Weekend,
				r.Crew, strings.Join(r.Vibes, ";"), r.Links, r.Score,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return nil
}
