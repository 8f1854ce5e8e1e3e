package cashflow

import (
	"slices"

	"github.com/shopspring/decimal"
)

// key groups movements by activity, category path and account.
type key struct {
	activity Activity
	path     [MaxDepth]string
	account  Account
}

// flows holds the incoming and outgoing sums of one key.
type flows struct {
	in  decimal.Decimal
	out decimal.Decimal
}

type aggregation map[key]flows

func (g aggregation) add(k key, in, out decimal.Decimal) {
	f := g[k]
	f.in = f.in.Add(in)
	f.out = f.out.Add(out)
	g[k] = f
}

type balances [numAccounts]decimal.Decimal

// snapshot is the aggregated form of one query window.
type snapshot struct {
	opening balances
	closing balances
	moves   aggregation
}

// Builder turns raw rows into a Statement.
type Builder struct {
	norm  *Normalizer
	depth int
}

// Option configures a Builder.
type Option func(*Builder)

// WithDepth sets how many category levels take part in grouping.
// Values are clamped to [1, MaxDepth].
func WithDepth(depth int) Option {
	return func(b *Builder) {
		b.depth = min(max(depth, 1), MaxDepth)
	}
}

// NewBuilder returns a Builder grouping by the first category level.
func NewBuilder(n *Normalizer, opts ...Option) *Builder {
	b := &Builder{norm: n, depth: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the statement of a single query window. Opening and
// closing balances are read from the balance rows.
func (b *Builder) Build(rows []TransactionRow) Statement {
	s := b.snapshot(rows)
	return assemble(s.opening, s.closing, s.moves)
}

// BuildDay derives a single day's statement from two cumulative snapshots:
// prev covers the day before, curr the day itself. Movements are the
// per-key difference curr-prev, the opening balance is the previous
// day's closing balance and the closing balance is opening plus net
// movement.
func (b *Builder) BuildDay(prev, curr []TransactionRow) Statement {
	p := b.snapshot(prev)
	c := b.snapshot(curr)

	moves := make(aggregation, len(c.moves))
	for k, f := range c.moves {
		moves[k] = f
	}
	for k, f := range p.moves {
		moves.add(k, f.in.Neg(), f.out.Neg())
	}

	opening := p.closing
	closing := opening
	for k, f := range moves {
		closing[k.account] = closing[k.account].Add(f.in).Sub(f.out)
	}
	return assemble(opening, closing, moves)
}

// snapshot splits rows into balances and movements. Rows of unknown
// accounts are dropped, as are movements of unknown activity.
func (b *Builder) snapshot(rows []TransactionRow) snapshot {
	var s snapshot
	raw := make(aggregation)
	for _, r := range rows {
		acct := b.norm.Account(r.Account)
		if !acct.Valid() {
			continue
		}
		if r.IsBalance() {
			s.opening[acct] = s.opening[acct].Add(r.StartBalance)
			s.closing[acct] = s.closing[acct].Add(r.FinalBalance)
			continue
		}
		act := ParseActivity(r.Activity)
		if act == ActivityNone {
			continue
		}
		k := key{activity: act, account: acct}
		copy(k.path[:b.depth], r.Category[:b.depth])
		raw.add(k, r.Incoming, r.Outgoing)
	}

	// Synonyms may collapse distinct raw labels onto one canonical label,
	// so the canonical keys are aggregated again.
	s.moves = make(aggregation, len(raw))
	for k, f := range raw {
		for i, label := range k.path {
			if label != "" {
				k.path[i] = b.norm.Category(label)
			}
		}
		s.moves.add(k, f.in, f.out)
	}
	return s
}

// categoryFlows are the per-account flows of one category path.
type categoryFlows struct {
	in  balances
	out balances
}

func assemble(opening, closing balances, moves aggregation) Statement {
	rows := []StatementRow{balanceRow(RowOpening, opening)}

	for _, act := range Activities {
		cats := make(map[[MaxDepth]string]*categoryFlows)
		for k, f := range moves {
			if k.activity != act {
				continue
			}
			cf, ok := cats[k.path]
			if !ok {
				cf = &categoryFlows{}
				cats[k.path] = cf
			}
			cf.in[k.account] = cf.in[k.account].Add(f.in)
			cf.out[k.account] = cf.out[k.account].Add(f.out)
		}

		paths := make([][MaxDepth]string, 0, len(cats))
		for p := range cats {
			paths = append(paths, p)
		}
		slices.SortFunc(paths, func(a, b [MaxDepth]string) int {
			return slices.Compare(a[:], b[:])
		})

		var section []StatementRow
		for _, p := range paths {
			cf := cats[p]
			if !allZero(cf.in) {
				section = append(section, movementRow(RowInflow, act, p, cf.in, false))
			}
			if !allZero(cf.out) {
				section = append(section, movementRow(RowOutflow, act, p, cf.out, true))
			}
		}
		if len(section) == 0 {
			continue
		}
		rows = append(rows, newRow(StatementRow{Kind: RowSection, Activity: act}))
		rows = append(rows, section...)
	}

	rows = append(rows, balanceRow(RowClosing, closing))
	return Statement{Rows: rows}
}

func balanceRow(kind RowKind, b balances) StatementRow {
	return newRow(StatementRow{Kind: kind, Values: b})
}

func movementRow(kind RowKind, act Activity, path [MaxDepth]string, b balances, negate bool) StatementRow {
	r := StatementRow{Kind: kind, Activity: act, Category: path}
	for i, v := range b {
		if negate {
			v = v.Neg()
		}
		r.Values[i] = v
	}
	return newRow(r)
}

// newRow fills every account column and derives the total.
func newRow(r StatementRow) StatementRow {
	total := decimal.Zero
	for i, v := range r.Values {
		if v.IsZero() {
			v = decimal.Zero
		}
		r.Values[i] = v
		total = total.Add(v)
	}
	r.Total = total
	return r
}

func allZero(b balances) bool {
	for _, v := range b {
		if !v.IsZero() {
			return false
		}
	}
	return true
}
