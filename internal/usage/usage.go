// Package usage accumulates token consumption across conversations and
// renders the per-reply cost annotation.
package usage

import (
	"fmt"
	"sync"

	"github.com/haasonsaas/relay/pkg/models"
)

// Pricing holds per-million-token prices in USD.
type Pricing struct {
	InputPerMTok  float64 `yaml:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok"`
}

// Cost computes the dollar cost of the given usage.
func (p Pricing) Cost(u models.Usage) float64 {
	return float64(u.InputTokens)/1e6*p.InputPerMTok + float64(u.OutputTokens)/1e6*p.OutputPerMTok
}

// Zero reports whether no prices are configured.
func (p Pricing) Zero() bool {
	return p.InputPerMTok == 0 && p.OutputPerMTok == 0
}

// Tracker accumulates token totals across all requests. Safe for concurrent
// use.
type Tracker struct {
	mu     sync.Mutex
	totals models.Usage
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds the usage of one exchange to the running totals.
func (t *Tracker) Record(u models.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totals = t.totals.Add(u)
}

// Totals returns the accumulated usage.
func (t *Tracker) Totals() models.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}

// Annotation renders a one-line usage footer for a reply. Returns the empty
// string when there is nothing to report.
func Annotation(u models.Usage, pricing Pricing) string {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return ""
	}
	if pricing.Zero() {
		return fmt.Sprintf("tokens: %d in / %d out", u.InputTokens, u.OutputTokens)
	}
	return fmt.Sprintf("tokens: %d in / %d out ($%.4f)", u.InputTokens, u.OutputTokens, pricing.Cost(u))
}
