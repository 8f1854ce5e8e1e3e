package iiko

import (
	"context"
	"time"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

// Source fetches transaction rows through a saved preset when one is
// configured and through the TRANSACTIONS report otherwise.
type Source struct {
	client   *Client
	presetID string
}

// NewSource returns a Source over c.
func NewSource(c *Client, presetID string) *Source {
	return &Source{client: c, presetID: presetID}
}

// Fetch returns the rows of the window [from, to).
func (s *Source) Fetch(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error) {
	var (
		recs []Record
		err  error
	)
	if s.presetID != "" {
		recs, err = s.client.PresetReport(ctx, s.presetID, from, to)
	} else {
		recs, err = s.client.TransactionsReport(ctx, from, to)
	}
	if err != nil {
		return nil, err
	}
	return Rows(recs), nil
}
