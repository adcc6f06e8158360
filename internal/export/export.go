package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"sjsage522/examwatcher/internal/crawler"
	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// utf8BOM lets spreadsheet tools detect the Persian text as UTF-8
const utf8BOM = "\ufeff"

// Exporter writes the two record sequences of a crawl to flat files,
// replacing the previous run's files
type Exporter struct {
	Dir    string
	Format string

	log *logger.Logger
}

// NewExporter creates an exporter writing into dir
func NewExporter(dir, format string) *Exporter {
	if format == "" {
		format = FormatCSV
	}
	return &Exporter{
		Dir:    dir,
		Format: format,
		log:    logger.ForExport(),
	}
}

// Export writes incomplete and completed records; empty sequences are skipped
func (e *Exporter) Export(result crawler.CrawlResult) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return errors.NewExport(e.Dir, "failed to create export directory", err)
	}

	sets := []struct {
		name    string
		records []crawler.Record
	}{
		{"incomplete", result.Incomplete},
		{"completed", result.Completed},
	}

	for _, set := range sets {
		if len(set.records) == 0 {
			continue
		}
		path := filepath.Join(e.Dir, set.name+"."+e.Format)
		if err := e.write(path, set.records); err != nil {
			return err
		}
		e.log.Debug().Str("path", path).Int("records", len(set.records)).Msg("Exported records")
	}
	return nil
}

func (e *Exporter) write(path string, records []crawler.Record) error {
	tmp := path + ".tmp"

	var err error
	switch e.Format {
	case FormatCSV:
		err = writeCSV(tmp, records)
	case FormatXLSX:
		err = writeXLSX(tmp, records)
	default:
		err = fmt.Errorf("unsupported format %q", e.Format)
	}
	if err != nil {
		os.Remove(tmp)
		return errors.NewExport(path, "failed to write export", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.NewExport(path, "failed to replace export", err)
	}
	return nil
}

func writeCSV(path string, records []crawler.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(crawler.FieldNames); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Values()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeXLSX(path string, records []crawler.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, crawler.FieldNames)
	for _, r := range records {
		rows = append(rows, r.Values())
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
