package crawler

import "context"

// CompletedStatus is the status cell text of a session with no seats left
const CompletedStatus = "تکمیل شد"

// RequiredColumns is the minimum number of cells a data row must have
const RequiredColumns = 6

// Status is the two-valued classification of a Record
type Status int

const (
	// Incomplete sessions still accept registrations
	Incomplete Status = iota
	// Completed sessions are full
	Completed
)

func (s Status) String() string {
	if s == Completed {
		return "completed"
	}
	return "incomplete"
}

// Record is one exam session row of the results table
type Record struct {
	Status   string `json:"status"`
	ExamName string `json:"exam_name"`
	Category string `json:"category"`
	ExamType string `json:"exam_type"`
	Date     string `json:"date"`
	Location string `json:"location"`
	Cost     string `json:"cost,omitempty"`
}

// FieldNames are the column headers used when records are exported
var FieldNames = []string{
	"وضعیت",
	"نام آزمون",
	"نوع",
	"نوع آزمون",
	"تاریخ برگزاری",
	"محل برگزاری",
	"هزینه",
}

// Classification returns Completed iff the status matches CompletedStatus exactly
func (r Record) Classification() Status {
	if r.Status == CompletedStatus {
		return Completed
	}
	return Incomplete
}

// Values returns the fields in FieldNames order
func (r Record) Values() []string {
	return []string{r.Status, r.ExamName, r.Category, r.ExamType, r.Date, r.Location, r.Cost}
}

// CrawlResult is the outcome of one pass over the configured page range
type CrawlResult struct {
	Incomplete []Record
	Completed  []Record

	PagesAttempted    int
	PagesFailed       int
	PagesWithoutTable int
	RowsSkipped       int
}

// Total returns the number of records in both buckets
func (r CrawlResult) Total() int {
	return len(r.Incomplete) + len(r.Completed)
}

// Fetcher retrieves the raw HTML of one listing page
type Fetcher interface {
	Fetch(ctx context.Context, page int) ([]byte, error)
}

// Selectors contains CSS selectors locating the results table
type Selectors struct {
	Table      string
	Row        string
	Cell       string
	HeaderRows int
}

// DefaultSelectors matches the listing table of the exam site
var DefaultSelectors = Selectors{
	Table:      "table.table.table-striped.table-bordered.table-responsive.city_table",
	Row:        "tr",
	Cell:       "td",
	HeaderRows: 2,
}
