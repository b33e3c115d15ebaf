package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is the flat export record for one preprint
type Row struct {
	ID         int64  `json:"id" parquet:"id"`
	Title      string `json:"title" parquet:"title"`
	Abstract   string `json:"abstract" parquet:"abstract"`
	Category   string `json:"category" parquet:"category"`
	CourseCode string `json:"course_code" parquet:"course_code"`
	Authors    string `json:"authors" parquet:"authors"`
	Faculty    string `json:"faculty" parquet:"faculty"`
	PDFURL     string `json:"pdf_url" parquet:"pdf_url"`
	UploadedAt string `json:"uploaded_at" parquet:"uploaded_at"`
	Version    int64  `json:"version" parquet:"version"`
	DOI        string `json:"doi" parquet:"doi"`
	Status     string `json:"status" parquet:"status"`
}

// NewRow flattens p
func NewRow(p models.Preprint) Row {
	r := Row{
		ID:         int64(p.ID),
		Title:      p.Title,
		Abstract:   p.Abstract,
		Category:   p.Category,
		CourseCode: models.Deref(p.CourseCode),
		Authors:    models.Deref(p.Authors),
		Faculty:    models.Deref(p.Faculty),
		PDFURL:     p.PDFURL(),
		Version:    int64(p.Version),
		DOI:        models.Deref(p.DOI),
		Status:     p.Status,
	}
	if !p.UploadedAt.IsZero() {
		r.UploadedAt = p.UploadedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// Export writes items to path as parquet or JSONL, chosen by extension
func Export(path string, items []models.Preprint) error {
	rows := make([]Row, 0, len(items))
	for _, p := range items {
		rows = append(rows, NewRow(p))
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		return writeParquet(path, rows)
	case ".jsonl", ".json":
		return writeJSONL(path, rows)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func writeParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}

	slog.Info("Exported preprints", "path", path, "rows", len(rows))
	return file.Close()
}

func writeJSONL(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSONL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	slog.Info("Exported preprints", "path", path, "rows", len(rows))
	return file.Close()
}

// Load reads an exported file back
func Load(path string) ([]Row, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		return loadParquet(path)
	case ".jsonl", ".json":
		return loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func loadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}

func loadJSONL(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var r Row
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			slog.Warn("Skipping malformed JSONL line", "line", line, "err", err)
			continue
		}
		rows = append(rows, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL file: %w", err)
	}
	return rows, nil
}
