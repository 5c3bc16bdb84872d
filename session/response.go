package session

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rizalta/toysql/query"
	"github.com/rizalta/toysql/tuple"
)

const (
	CodeOK         = 200
	CodeBadRequest = 400
	CodeInternal   = 500
)

// Response is the outcome of the last statement a session ran. Records,
// QueryTimes and ColumnNames describe it when it was a query. Affected counts
// rows written when it was a mutation.
type Response struct {
	Records     []tuple.Tuple
	QueryTimes  query.Timings
	ColumnNames []string
	TableNames  []string
	Affected    int
	Error       string
	Code        int
}

func (r *Response) Failed() bool {
	return r.Code != CodeOK
}

// Clone returns a copy that later statements will not touch.
func (r *Response) Clone() *Response {
	c := *r
	c.Records = slices.Clone(r.Records)
	c.ColumnNames = slices.Clone(r.ColumnNames)
	c.TableNames = slices.Clone(r.TableNames)
	c.QueryTimes = maps.Clone(r.QueryTimes)
	return &c
}

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#334155"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

// Render writes the response for a terminal: the records as a table, then
// row count, step timings and the table directory.
func (r *Response) Render(w io.Writer) error {
	var b strings.Builder

	if r.Failed() {
		fmt.Fprintln(&b, errorStyle.Render(fmt.Sprintf("error %d: %s", r.Code, r.Error)))
		_, err := io.WriteString(w, b.String())
		return err
	}

	if len(r.ColumnNames) > 0 {
		rows := make([][]string, len(r.Records))
		for i, rec := range r.Records {
			row := make([]string, len(rec))
			for j, v := range rec {
				row[j] = formatCell(v)
			}
			rows[i] = row
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(borderStyle).
			Headers(r.ColumnNames...).
			Rows(rows...)
		fmt.Fprintln(&b, t.String())
		fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("%d rows", len(r.Records))))
	} else if r.Affected > 0 {
		fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("%d rows affected", r.Affected)))
	}

	steps := make([]string, 0, len(r.QueryTimes))
	for step := range r.QueryTimes {
		steps = append(steps, step)
	}
	slices.Sort(steps)
	for _, step := range steps {
		fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("%s: %s", step, r.QueryTimes[step].Round(time.Microsecond))))
	}

	if len(r.TableNames) > 0 {
		fmt.Fprintln(&b, mutedStyle.Render("tables: "+strings.Join(r.TableNames, ", ")))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatCell(v tuple.Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return query.FormatValue(v)
}
