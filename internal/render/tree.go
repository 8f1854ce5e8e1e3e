package render

import (
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

// Tree renders a statement as one connector tree per account: balances,
// then activity → category levels → opening/inflow/outflow/closing leaves.
// Statements carry balances per account only, so category opening and
// closing leaves are zero.
type Tree struct {
	locale Locale
}

// NewTree returns a Tree renderer using locale l.
func NewTree(l Locale) *Tree {
	return &Tree{locale: l}
}

// node keeps children in insertion order.
type node struct {
	label    string
	children []*node
	index    map[string]*node
}

func (n *node) child(label string) *node {
	if c, ok := n.index[label]; ok {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]*node)
	}
	c := &node{label: label}
	n.index[label] = c
	n.children = append(n.children, c)
	return c
}

func (n *node) leaf(label string) {
	n.children = append(n.children, &node{label: label})
}

func (n *node) tree() *tree.Tree {
	t := tree.New().Root(n.label)
	for _, c := range n.children {
		if len(c.children) == 0 {
			t.Child(c.label)
			continue
		}
		t.Child(c.tree())
	}
	return t
}

// Render returns the tree text for st under title.
func (tr *Tree) Render(title string, st cashflow.Statement) string {
	root := &node{label: title}
	for _, a := range cashflow.Accounts {
		tr.account(root.child(a.String()), a, st)
	}
	return root.tree().String()
}

func (tr *Tree) account(n *node, a cashflow.Account, st cashflow.Statement) {
	balances := n.child("Остатки")
	balances.leaf("Остаток на начало: " + tr.locale.Money(st.Opening().Value(a)))
	balances.leaf("Остаток на конец: " + tr.locale.Money(st.Closing().Value(a)))

	var order []*node
	flows := make(map[*node]*categoryFlows)
	for _, r := range st.Movements() {
		v := r.Value(a)
		if r.Kind == cashflow.RowSection || v.IsZero() {
			continue
		}
		cur := n.child(r.Activity.String())
		for _, level := range r.Category {
			if level == "" {
				break
			}
			cur = cur.child(level)
		}
		f, ok := flows[cur]
		if !ok {
			f = &categoryFlows{}
			flows[cur] = f
			order = append(order, cur)
		}
		switch r.Kind {
		case cashflow.RowInflow:
			f.in = f.in.Add(v)
		case cashflow.RowOutflow:
			f.out = f.out.Add(v.Neg())
		}
	}

	for _, c := range order {
		f := flows[c]
		c.leaf("Остаток на начало: " + tr.locale.Money(decimal.Zero))
		c.leaf("Поступления: " + tr.locale.Money(f.in))
		c.leaf("Выбытия: " + tr.locale.Money(f.out))
		c.leaf("Остаток на конец: " + tr.locale.Money(decimal.Zero))
	}
}

type categoryFlows struct {
	in, out decimal.Decimal
}
