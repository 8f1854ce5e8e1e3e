package render

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

func sampleStatement() cashflow.Statement {
	b := cashflow.NewBuilder(cashflow.NewNormalizer(cashflow.DefaultVocabulary()))
	return b.Build([]cashflow.TransactionRow{
		{Account: "Главная касса", StartBalance: decimal.NewFromInt(1000), FinalBalance: decimal.NewFromInt(1300)},
		{Account: "Главная касса", Activity: "FINANCE", Category: [cashflow.MaxDepth]string{"Займ"}, Incoming: decimal.NewFromInt(500)},
		{Account: "Главная касса", Activity: "FINANCE", Category: [cashflow.MaxDepth]string{"Займ"}, Outgoing: decimal.NewFromInt(200)},
		{Account: "Торговые кассы", Activity: "OPERATIONAL", Category: [cashflow.MaxDepth]string{"Выручка"}, Incoming: decimal.RequireFromString("1234.5")},
	})
}

func TestLocale_Money(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00"},
		{"999", "999,00"},
		{"1000", "1 000,00"},
		{"1234567.8", "1 234 567,80"},
		{"-1000.5", "-1 000,50"},
		{"-0.004", "0,00"},
		{"12.345", "12,35"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RU.Money(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("Money(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Очень длинная статья", 6); got != "Очень…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("Займ", 6); got != "Займ" {
		t.Errorf("truncate = %q", got)
	}
}

func TestText_Render(t *testing.T) {
	out := NewText().Render("Отчёт ДДС <01.02.2024>", sampleStatement())

	for _, want := range []string{
		"<b>Отчёт ДДС &lt;01.02.2024&gt;</b>",
		"<pre>",
		"</pre>",
		"Итого",
		"ОПЕРАЦИОННАЯ ДЕЯТЕЛЬНОСТЬ",
		"ФИНАНСОВАЯ ДЕЯТЕЛЬНОСТЬ",
		"+ Займ",
		"- Займ",
		"500,00",
		"-200,00",
		"1 234,50",
		"Остаток на начало",
		"Остаток на конец",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ОПЕРАЦИОННАЯ") > strings.Index(out, "ФИНАНСОВАЯ") {
		t.Error("operational section must come before financing")
	}
}

func TestText_Render_LongAmountsStayOnOneLine(t *testing.T) {
	b := cashflow.NewBuilder(cashflow.NewNormalizer(cashflow.DefaultVocabulary()))
	st := b.Build([]cashflow.TransactionRow{
		{Account: "Главная касса", StartBalance: decimal.NewFromInt(0), FinalBalance: decimal.RequireFromString("123456789012.34")},
		{Account: "Главная касса", Activity: "OPERATIONAL", Category: [cashflow.MaxDepth]string{"Выручка"}, Incoming: decimal.RequireFromString("123456789012.34")},
	})

	out := NewText(WithHTML(false)).Render("Отчёт", st)
	lines := strings.Split(out, "\n")
	var inflow string
	for _, l := range lines {
		if strings.Contains(l, "+ Выручка") {
			inflow = l
		}
		if strings.TrimSpace(l) == "012,34" {
			t.Errorf("amount wrapped onto its own line:\n%s", out)
		}
	}
	if !strings.Contains(inflow, "123 456 789 012,34") {
		t.Errorf("inflow row = %q, want the full amount on it:\n%s", inflow, out)
	}
}

func TestText_Render_BalancesOnly(t *testing.T) {
	b := cashflow.NewBuilder(cashflow.NewNormalizer(cashflow.DefaultVocabulary()))
	st := b.Build([]cashflow.TransactionRow{
		{Account: "Главная касса", StartBalance: decimal.NewFromInt(1000), FinalBalance: decimal.NewFromInt(1200)},
	})

	out := NewText(WithHTML(false)).Render("Отчёт", st)
	want := "Отчёт\n\nОстаток на начало: 1 000,00\nОстаток на конец: 1 200,00"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestTree_Render(t *testing.T) {
	out := NewTree(RU).Render("ДДС", sampleStatement())

	for _, want := range []string{
		"├── ",
		"└── ",
		"Главная касса",
		"Торговые кассы",
		"Остатки",
		"Остаток на начало: 1 000,00",
		"Финансовая деятельность",
		"Поступления: 500,00",
		"Выбытия: 200,00",
		"Поступления: 1 234,50",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
	main := strings.Index(out, "Главная касса")
	trades := strings.Index(out, "Торговые кассы")
	if main > trades {
		t.Error("accounts must appear in column order")
	}
	if strings.Index(out, "Поступления: 500,00") > strings.Index(out, "Выбытия: 200,00") {
		t.Error("leaves must keep insertion order")
	}
}

func TestTree_Render_CategoryLeaves(t *testing.T) {
	out := NewTree(RU).Render("ДДС", sampleStatement())

	loan := strings.Index(out, "Займ")
	if loan < 0 {
		t.Fatalf("tree missing category:\n%s", out)
	}
	rest := out[loan:]
	pos := 0
	for _, want := range []string{
		"Остаток на начало: 0,00",
		"Поступления: 500,00",
		"Выбытия: 200,00",
		"Остаток на конец: 0,00",
	} {
		i := strings.Index(rest[pos:], want)
		if i < 0 {
			t.Fatalf("leaf %q missing or out of order under category:\n%s", want, out)
		}
		pos += i + len(want)
	}
	if n := strings.Count(out, "Поступления: 500,00"); n != 1 {
		t.Errorf("inflow leaf appears %d times, want 1", n)
	}
}
