package crawler

import (
	"bytes"
	"strings"

	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// ExtractStats describes what the extractor saw on a page
type ExtractStats struct {
	TableFound  bool
	RowsSkipped int
}

// TableExtractor turns a listing page into records
type TableExtractor struct {
	Selectors Selectors
	log       *logger.Logger
}

// NewTableExtractor creates an extractor for the given selectors
func NewTableExtractor(selectors Selectors) *TableExtractor {
	return &TableExtractor{
		Selectors: selectors,
		log:       logger.ForCrawler(),
	}
}

// Extract returns the records of the first matching table in html.
// A missing table yields no records and no error; rows with too few cells are
// skipped individually.
func (e *TableExtractor) Extract(html []byte) ([]Record, ExtractStats) {
	var stats ExtractStats

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		e.log.Warn().Err(err).Msg("HTML parsing failed")
		return nil, stats
	}

	table := doc.Find(e.Selectors.Table).First()
	if table.Length() == 0 {
		return nil, stats
	}
	stats.TableFound = true

	var records []Record
	table.Find(e.Selectors.Row).Each(func(i int, row *goquery.Selection) {
		if i < e.Selectors.HeaderRows {
			return
		}

		cells := row.Find(e.Selectors.Cell)
		if cells.Length() == 0 {
			return
		}
		if cells.Length() < RequiredColumns {
			stats.RowsSkipped++
			e.log.Warn().
				Err(errors.NewRow("table", "too few columns")).
				Int("row", i).
				Int("columns", cells.Length()).
				Int("required", RequiredColumns).
				Msg("Skipping malformed row")
			return
		}

		records = append(records, recordFromCells(cells))
	})

	return records, stats
}

// recordFromCells maps cells positionally onto a Record
func recordFromCells(cells *goquery.Selection) Record {
	text := func(i int) string {
		if i >= cells.Length() {
			return ""
		}
		return strings.TrimSpace(cells.Eq(i).Text())
	}

	return Record{
		Status:   text(0),
		ExamName: text(1),
		Category: text(2),
		ExamType: text(3),
		Date:     text(4),
		Location: text(5),
		Cost:     text(6),
	}
}
