package render

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

const (
	defaultLabelWidth = 26
	defaultValueWidth = 15
)

// Text renders a statement as a fixed-width table suitable for a chat
// message. With HTML enabled the table is wrapped in <pre> under a bold
// title and all text is escaped.
type Text struct {
	locale     Locale
	html       bool
	labelWidth int
	valueWidth int
}

// TextOption configures a Text renderer.
type TextOption func(*Text)

// WithLocale sets the money format.
func WithLocale(l Locale) TextOption {
	return func(t *Text) { t.locale = l }
}

// WithHTML toggles HTML output.
func WithHTML(on bool) TextOption {
	return func(t *Text) { t.html = on }
}

// WithWidths sets the label and value column widths.
func WithWidths(label, value int) TextOption {
	return func(t *Text) {
		if label > 0 {
			t.labelWidth = label
		}
		if value > 0 {
			t.valueWidth = value
		}
	}
}

// NewText returns an HTML renderer using the RU locale.
func NewText(opts ...TextOption) *Text {
	t := &Text{
		locale:     RU,
		html:       true,
		labelWidth: defaultLabelWidth,
		valueWidth: defaultValueWidth,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render returns the message body for st under title.
func (t *Text) Render(title string, st cashflow.Statement) string {
	var body string
	if st.HasMovements() {
		body = t.table(st)
	} else {
		body = t.balancesOnly(st)
	}

	if !t.html {
		return title + "\n\n" + body
	}
	return fmt.Sprintf("<b>%s</b>\n<pre>%s</pre>", html.EscapeString(title), html.EscapeString(body))
}

func (t *Text) balancesOnly(st cashflow.Statement) string {
	open, closing := st.Opening(), st.Closing()
	return fmt.Sprintf("%s: %s\n%s: %s",
		open.Label(), t.locale.Money(open.Total),
		closing.Label(), t.locale.Money(closing.Total))
}

func (t *Text) table(st cashflow.Statement) string {
	headers := []string{"Статья"}
	for _, a := range cashflow.Accounts {
		headers = append(headers, truncate(a.String(), t.valueWidth))
	}
	headers = append(headers, "Итого")

	// Value columns grow to the widest amount so every row stays on one line.
	rows := make([][]string, 0, len(st.Rows))
	width := t.valueWidth
	for _, r := range st.Rows {
		cells := t.cells(r)
		for _, c := range cells[1:] {
			width = max(width, utf8.RuneCountInString(c))
		}
		rows = append(rows, cells)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return lipgloss.NewStyle().Width(t.labelWidth).PaddingRight(1)
			}
			return lipgloss.NewStyle().Width(width + 1).Align(lipgloss.Right)
		})

	for _, cells := range rows {
		tbl.Row(cells...)
	}
	return tbl.String()
}

func (t *Text) cells(r cashflow.StatementRow) []string {
	var label string
	switch r.Kind {
	case cashflow.RowSection:
		label = strings.ToUpper(r.Label())
	case cashflow.RowInflow:
		label = "+ " + r.Label()
	case cashflow.RowOutflow:
		label = "- " + r.Label()
	default:
		label = r.Label()
	}

	cells := []string{truncate(label, t.labelWidth-1)}
	for _, a := range cashflow.Accounts {
		cells = append(cells, t.value(r, r.Value(a)))
	}
	return append(cells, t.value(r, r.Total))
}

// value leaves section headers blank.
func (t *Text) value(r cashflow.StatementRow, v decimal.Decimal) string {
	if r.Kind == cashflow.RowSection {
		return ""
	}
	return t.locale.Money(v)
}
