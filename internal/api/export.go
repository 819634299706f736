package api

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

// exportPlaces is the decimal precision of exported monetary values.
const exportPlaces = 4

// WriteGameCSV flattens a game into one row per firm per round. Values are
// rounded through decimals so spreadsheets do not see float noise like
// 899.9999999999999.
func WriteGameCSV(w io.Writer, st *game.State) error {
	cw := csv.NewWriter(w)

	header := []string{"replication", "round", "firm", "quantity", "price", "profit", "total_quantity"}
	if err := cw.Write(header); err != nil {
		return err
	}

	writeRounds := func(replication int, rounds []market.RoundResult) error {
		for _, r := range rounds {
			for _, f := range r.Firms {
				row := []string{
					strconv.Itoa(replication),
					strconv.Itoa(r.Round),
					strconv.Itoa(f.Firm),
					round4(f.Quantity),
					round4(f.Price),
					round4(f.Profit),
					round4(r.TotalQuantity),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, rep := range st.Replications {
		if err := writeRounds(rep.Replication, rep.Rounds); err != nil {
			return err
		}
	}
	// Rounds of a replication still in progress.
	if len(st.Rounds) > 0 {
		if err := writeRounds(st.CurrentReplication, st.Rounds); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func round4(v float64) string {
	return decimal.NewFromFloat(v).Round(exportPlaces).String()
}
