package market

import (
	"encoding/json"
	"time"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// NewRoundResult assembles the immutable result for one round.
func NewRoundResult(round int, firms []FirmResult, p *params.Realized, transcript []TranscriptEntry) RoundResult {
	total := 0.0
	for _, f := range firms {
		total += f.Quantity
	}
	return RoundResult{
		Round:         round,
		Firms:         firms,
		TotalQuantity: total,
		Parameters:    p,
		Transcript:    transcript,
		Timestamp:     time.Now().Unix(),
	}
}

// legacyFields mirrors the first two firms into the flat shape older
// consumers expect. The per-firm slice stays canonical; this projection
// exists only at the serialization boundary.
type legacyFields struct {
	Quantity1 *float64 `json:"quantity1,omitempty"`
	Quantity2 *float64 `json:"quantity2,omitempty"`
	Price1    *float64 `json:"price1,omitempty"`
	Price2    *float64 `json:"price2,omitempty"`
	Profit1   *float64 `json:"profit1,omitempty"`
	Profit2   *float64 `json:"profit2,omitempty"`
}

// MarshalJSON emits the canonical result plus the legacy two-firm mirror.
func (r RoundResult) MarshalJSON() ([]byte, error) {
	type alias RoundResult
	out := struct {
		alias
		legacyFields
	}{alias: alias(r)}

	if len(r.Firms) > 0 {
		f := r.Firms[0]
		out.Quantity1, out.Price1, out.Profit1 = &f.Quantity, &f.Price, &f.Profit
	}
	if len(r.Firms) > 1 {
		f := r.Firms[1]
		out.Quantity2, out.Price2, out.Profit2 = &f.Quantity, &f.Price, &f.Profit
	}
	return json.Marshal(out)
}
