package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage persists a rendered report and returns where it went.
type Storage interface {
	Save(report *Report, content string) (string, error)
}

// FileStorage writes reports under OutputDir.
type FileStorage struct {
	OutputDir string
}

func NewFileStorage(outputDir string) *FileStorage {
	return &FileStorage{
		OutputDir: outputDir,
	}
}

// Save writes the report to a timestamped markdown file.
func (s *FileStorage) Save(report *Report, content string) (string, error) {
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Unix()
	filename := fmt.Sprintf("audit_report_%s_%d.md", report.Mode, timestamp)
	path := filepath.Join(s.OutputDir, filename)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// PostgresStorage persists reports into the audit_reports table. The handle
// comes from config.InitReportsDB.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) (*PostgresStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("reports database handle is nil")
	}
	return &PostgresStorage{db: db}, nil
}

// EnsureSchema creates the audit_reports table when missing.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS audit_reports (
		run_id               UUID PRIMARY KEY,
		mode                 TEXT NOT NULL,
		strategy             TEXT NOT NULL,
		ai_provider          TEXT NOT NULL,
		scan_time            TIMESTAMPTZ NOT NULL,
		total_contracts      INTEGER NOT NULL,
		vulnerable_contracts INTEGER NOT NULL,
		content              TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure audit_reports schema: %w", err)
	}
	return nil
}

// Save upserts the rendered report keyed by run id.
func (s *PostgresStorage) Save(report *Report, content string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO audit_reports (run_id, mode, strategy, ai_provider, scan_time, total_contracts, vulnerable_contracts, content)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO UPDATE SET
		total_contracts = EXCLUDED.total_contracts,
		vulnerable_contracts = EXCLUDED.vulnerable_contracts,
		content = EXCLUDED.content`,
		report.RunID, report.Mode, report.Strategy, report.AIProvider,
		report.ScanTime, report.TotalContracts, report.VulnerableContracts, content)
	if err != nil {
		return "", fmt.Errorf("persist report %s: %w", report.RunID, err)
	}
	return fmt.Sprintf("postgres://audit_reports/%s", report.RunID), nil
}
