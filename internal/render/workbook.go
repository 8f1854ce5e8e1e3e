package render

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

// Sheet is the name of the statement worksheet.
const Sheet = "ДДС"

const (
	titleRow     = 1
	entityRow    = 2
	captionRow   = 3
	bandRow      = 5
	subHeaderRow = 6
	firstDataRow = 7

	activityCol   = 1 // A
	firstLevelCol = 2 // B..D
	firstBandCol  = firstLevelCol + cashflow.MaxDepth
	bandWidth     = 4
)

// Metric is a sub-column of an account band.
type Metric int

const (
	MetricOpening Metric = iota
	MetricInflow
	MetricOutflow
	MetricClosing
)

var metricLabels = [bandWidth]string{"Остаток на начало", "Поступления", "Выбытия", "Остаток на конец"}

// band is one merged header group.
type band struct {
	label string
	value func(cashflow.StatementRow) decimal.Decimal
}

// Workbook renders a statement to xlsx.
type Workbook struct {
	Title  string
	Entity string
}

// NewWorkbook returns a Workbook titled for a cash flow statement of entity.
func NewWorkbook(entity string) *Workbook {
	return &Workbook{Title: "Отчёт о движении денежных средств", Entity: entity}
}

// BandColumn returns the 1-based column of metric m in band i, where bands
// are the accounts in order followed by the total.
func BandColumn(i int, m Metric) int {
	return firstBandCol + i*bandWidth + int(m)
}

// Render builds the workbook for st and returns its bytes.
func (w *Workbook) Render(caption string, st cashflow.Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, fmt.Errorf("Workbook.Render: rename sheet: %w", err)
	}

	sty, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("Workbook.Render: %w", err)
	}

	bands := make([]band, 0, len(cashflow.Accounts)+1)
	for _, a := range cashflow.Accounts {
		a := a
		bands = append(bands, band{
			label: a.String(),
			value: func(r cashflow.StatementRow) decimal.Decimal { return r.Value(a) },
		})
	}
	bands = append(bands, band{
		label: "Итого",
		value: func(r cashflow.StatementRow) decimal.Decimal { return r.Total },
	})
	lastCol := BandColumn(len(bands)-1, MetricClosing)

	s := &sheetWriter{f: f}
	s.header(titleRow, lastCol, w.Title, sty.title)
	s.header(entityRow, lastCol, w.Entity, sty.subtitle)
	s.header(captionRow, lastCol, caption, sty.subtitle)

	s.merge(activityCol, bandRow, activityCol, subHeaderRow, "Вид деятельности", sty.head)
	s.merge(firstLevelCol, bandRow, firstLevelCol+cashflow.MaxDepth-1, bandRow, "Статья", sty.head)
	for i := 0; i < cashflow.MaxDepth; i++ {
		s.set(firstLevelCol+i, subHeaderRow, fmt.Sprintf("Уровень %d", i+1), sty.head)
	}
	for i, b := range bands {
		s.merge(BandColumn(i, MetricOpening), bandRow, BandColumn(i, MetricClosing), bandRow, b.label, sty.head)
		for m, label := range metricLabels {
			s.set(BandColumn(i, Metric(m)), subHeaderRow, label, sty.head)
		}
	}

	for i, r := range st.Rows {
		row := firstDataRow + i
		textStyle, numStyle := sty.text, sty.number
		if r.Kind != cashflow.RowInflow && r.Kind != cashflow.RowOutflow {
			textStyle, numStyle = sty.bold, sty.boldNumber
		}

		switch r.Kind {
		case cashflow.RowOpening, cashflow.RowClosing, cashflow.RowSection:
			s.set(activityCol, row, r.Label(), textStyle)
		default:
			for lvl, label := range r.Category {
				if label != "" {
					s.set(firstLevelCol+lvl, row, label, textStyle)
				}
			}
		}

		m, ok := metricOf(r.Kind)
		if !ok {
			continue
		}
		for bi, b := range bands {
			s.set(BandColumn(bi, m), row, b.value(r).InexactFloat64(), numStyle)
		}
	}

	s.widths(lastCol)
	if s.err != nil {
		return nil, fmt.Errorf("Workbook.Render: %w", s.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("Workbook.Render: write: %w", err)
	}
	return buf.Bytes(), nil
}

func metricOf(k cashflow.RowKind) (Metric, bool) {
	switch k {
	case cashflow.RowOpening:
		return MetricOpening, true
	case cashflow.RowInflow:
		return MetricInflow, true
	case cashflow.RowOutflow:
		return MetricOutflow, true
	case cashflow.RowClosing:
		return MetricClosing, true
	default:
		return 0, false
	}
}

type styles struct {
	title, subtitle, head int
	text, bold            int
	number, boldNumber    int
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "#A6A6A6", Style: 1},
		{Type: "right", Color: "#A6A6A6", Style: 1},
		{Type: "top", Color: "#A6A6A6", Style: 1},
		{Type: "bottom", Color: "#A6A6A6", Style: 1},
	}
	var s styles
	defs := []styleDef{
		{&s.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		}},
		{&s.subtitle, &excelize.Style{
			Font:      &excelize.Font{Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		}},
		{&s.head, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 10},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    border,
		}},
		{&s.text, &excelize.Style{
			Font:   &excelize.Font{Size: 10},
			Border: border,
		}},
		{&s.bold, &excelize.Style{
			Font:   &excelize.Font{Size: 10, Bold: true},
			Border: border,
		}},
		{&s.number, &excelize.Style{
			Font:      &excelize.Font{Size: 10},
			Alignment: &excelize.Alignment{Horizontal: "right"},
			NumFmt:    4, // #,##0.00
			Border:    border,
		}},
		{&s.boldNumber, &excelize.Style{
			Font:      &excelize.Font{Size: 10, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "right"},
			NumFmt:    4,
			Border:    border,
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return styles{}, fmt.Errorf("new style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// sheetWriter records the first error so layout code stays linear.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && s.err == nil {
		s.err = err
	}
	return name
}

func (s *sheetWriter) set(col, row int, v any, style int) {
	if s.err != nil {
		return
	}
	c := s.cell(col, row)
	if err := s.f.SetCellValue(Sheet, c, v); err != nil {
		s.err = fmt.Errorf("set %s: %w", c, err)
		return
	}
	if err := s.f.SetCellStyle(Sheet, c, c, style); err != nil {
		s.err = fmt.Errorf("style %s: %w", c, err)
	}
}

func (s *sheetWriter) merge(c1, r1, c2, r2 int, v any, style int) {
	if s.err != nil {
		return
	}
	from, to := s.cell(c1, r1), s.cell(c2, r2)
	if err := s.f.MergeCell(Sheet, from, to); err != nil {
		s.err = fmt.Errorf("merge %s:%s: %w", from, to, err)
		return
	}
	if err := s.f.SetCellStyle(Sheet, from, to, style); err != nil {
		s.err = fmt.Errorf("style %s:%s: %w", from, to, err)
		return
	}
	if err := s.f.SetCellValue(Sheet, from, v); err != nil {
		s.err = fmt.Errorf("set %s: %w", from, err)
	}
}

func (s *sheetWriter) header(row, lastCol int, v string, style int) {
	s.merge(activityCol, row, lastCol, row, v, style)
}

func (s *sheetWriter) widths(lastCol int) {
	if s.err != nil {
		return
	}
	set := func(from, to int, width float64) {
		a, err := excelize.ColumnNumberToName(from)
		if err != nil {
			s.err = err
			return
		}
		b, err := excelize.ColumnNumberToName(to)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetColWidth(Sheet, a, b, width); err != nil {
			s.err = err
		}
	}
	set(activityCol, activityCol, 28)
	set(firstLevelCol, firstBandCol-1, 22)
	set(firstBandCol, lastCol, 15)
	if err := s.f.SetRowHeight(Sheet, subHeaderRow, 30); err != nil && s.err == nil {
		s.err = err
	}
}
