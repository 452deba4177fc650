// Package export renders evaluation reports as xlsx workbooks.
package export

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/xuri/excelize/v2"
)

const (
	detailSheet  = "Evaluations"
	summarySheet = "Summary"
)

var (
	detailHeader  = []string{"Evaluation ID", "Date", "Employee", "Evaluator", "Status", "Comments"}
	summaryHeader = []string{"Employee Name", "Email", "Total Evaluations", "Final Evaluations", "Average Score", "Latest Score"}
)

type Exporter struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

// New creates dir if needed.
func New(dir string, log *slog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{dir: dir, log: log, now: time.Now}, nil
}

func (x *Exporter) Dir() string { return x.dir }

// EvaluationsDetail writes one row per evaluation. After the fixed columns
// comes one column per scored criterion, headed by its name, in criteria file
// order, followed by any criterion ids that no longer resolve.
func (x *Exporter) EvaluationsDetail(evals []evaluation.Evaluation, criteria []criterion.Criterion, users []user.User, filename string) (string, error) {
	path := x.target(filename, "evaluations_detail")

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	columns := scoreColumns(evals, criteria)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return "", err
	}

	header := append(append([]string{}, detailHeader...), columns.headers...)
	if err := writeHeader(f, detailSheet, header); err != nil {
		return "", err
	}

	for i, ev := range evals {
		row := i + 2
		values := []any{
			ev.ID,
			ev.Date,
			lookup(names, ev.EmployeeID),
			lookup(names, ev.EvaluatorID),
			ev.Status,
			ev.Comments,
		}
		if err := setRow(f, detailSheet, row, values); err != nil {
			return "", err
		}

		for id, score := range ev.Scores {
			col := len(detailHeader) + columns.index[id] + 1
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(detailSheet, cell, score); err != nil {
				return "", err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	x.log.Info("exported evaluations detail", "path", path, "rows", len(evals))
	return path, nil
}

// EmployeeSummary writes one row per summary with scores rounded to two
// decimals.
func (x *Exporter) EmployeeSummary(summaries []engine.EmployeeSummary, filename string) (string, error) {
	path := x.target(filename, "employee_summary")

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", err
	}
	if err := writeHeader(f, summarySheet, summaryHeader); err != nil {
		return "", err
	}

	for i, s := range summaries {
		values := []any{
			s.EmployeeName,
			s.Email,
			s.TotalEvaluations,
			s.FinalEvaluations,
			round2(s.AverageScore),
			round2(s.LatestScore),
		}
		if err := setRow(f, summarySheet, i+2, values); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}

	x.log.Info("exported employee summary", "path", path, "rows", len(summaries))
	return path, nil
}

// target resolves the output path. Only the base name of filename is used.
func (x *Exporter) target(filename, prefix string) string {
	if filename == "" {
		filename = fmt.Sprintf("%s_%s.xlsx", prefix, x.now().Format("20060102_150405"))
	}
	name := filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	return filepath.Join(x.dir, name)
}

// columnSet maps criterion ids to score columns. Two criteria sharing a name
// still get a column each.
type columnSet struct {
	headers []string
	index   map[string]int
}

func scoreColumns(evals []evaluation.Evaluation, criteria []criterion.Criterion) columnSet {
	used := map[string]bool{}
	for _, ev := range evals {
		for id := range ev.Scores {
			used[id] = true
		}
	}

	cs := columnSet{index: map[string]int{}}
	add := func(id, header string) {
		cs.index[id] = len(cs.headers)
		cs.headers = append(cs.headers, header)
	}

	for _, c := range criteria {
		if used[c.ID] {
			add(c.ID, c.Name)
			delete(used, c.ID)
		}
	}

	dangling := make([]string, 0, len(used))
	for id := range used {
		dangling = append(dangling, id)
	}
	sort.Strings(dangling)
	for _, id := range dangling {
		add(id, id)
	}

	return cs
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := setRow(f, sheet, 1, values); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func lookup(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
