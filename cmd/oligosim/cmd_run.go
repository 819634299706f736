package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/oligopoly-sim-go/internal/api"
	"github.com/MJE43/oligopoly-sim-go/internal/config"
	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
	"github.com/MJE43/oligopoly-sim-go/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one game from a YAML configuration file to completion",
		RunE:  runGame,
	}
	cmd.Flags().String("game", "", "path to the game configuration YAML (required)")
	cmd.Flags().String("out", "", "write round results to this CSV file")
	cmd.Flags().Int64("seed", 0, "seed for parameter realization (0 = random)")
	cmd.Flags().Bool("save", false, "persist the finished game to the database")
	cmd.MarkFlagRequired("game")
	return cmd
}

func runGame(cmd *cobra.Command, args []string) error {
	gamePath, _ := cmd.Flags().GetString("game")
	outPath, _ := cmd.Flags().GetString("out")
	seed, _ := cmd.Flags().GetInt64("seed")
	save, _ := cmd.Flags().GetBool("save")

	procCfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(gamePath)
	if err != nil {
		return fmt.Errorf("read game config: %w", err)
	}
	var gameCfg game.Config
	if err := yaml.Unmarshal(raw, &gameCfg); err != nil {
		return fmt.Errorf("parse game config: %w", err)
	}

	logger := log.New(os.Stdout, "[RUN] ", log.LstdFlags)

	provider, release, err := buildProvider(cmd.Context(), procCfg)
	if err != nil {
		return err
	}
	defer release()

	orch := game.New(provider, &consoleEmitter{logger: logger})
	if seed != 0 {
		orch.SetRealizer(params.NewRealizerWithSeed(seed))
	}
	if save {
		db, err := store.NewSQLiteDB(procCfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		orch.SetStore(db)
	}

	if err := orch.Configure(&gameCfg); err != nil {
		return err
	}
	if err := orch.Start(); err != nil {
		return err
	}
	orch.Wait()

	st, ok := orch.Snapshot()
	if !ok {
		return fmt.Errorf("game state lost")
	}
	if st.LastError != "" {
		return fmt.Errorf("game ended with error: %s", st.LastError)
	}

	printSummary(&st)

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := api.WriteGameCSV(f, &st); err != nil {
			return err
		}
		logger.Printf("wrote %s", outPath)
	}
	return nil
}

func printSummary(st *game.State) {
	fmt.Printf("game %s: %d replications x %d rounds\n", st.ID, st.Config.Replications, st.Config.Rounds)
	if nash := st.Benchmarks.Nash; nash != nil {
		fmt.Printf("  nash benchmark: q=(%.2f, %.2f) p=%.2f\n", nash.Quantity1, nash.Quantity2, nash.Price)
	}
	if st.Summary == nil {
		return
	}
	for i := range st.Summary.TotalProfits {
		fmt.Printf("  firm %d: avg quantity %.2f, avg price %.2f, total profit %.2f\n",
			i+1, st.Summary.AvgQuantities[i], st.Summary.AvgPrices[i], st.Summary.TotalProfits[i])
	}
	if dev := st.Summary.NashDeviation; dev != nil {
		fmt.Printf("  deviation from nash: firm 1 %+.2f, firm 2 %+.2f\n", dev.Firm1, dev.Firm2)
	}
}

// consoleEmitter logs the coarse lifecycle events so long runs show
// progress without flooding the terminal.
type consoleEmitter struct {
	logger *log.Logger
}

func (c *consoleEmitter) Emit(ev game.Event) {
	switch ev.Type {
	case game.EventReplicationStarted:
		c.logger.Printf("replication %d/%d", ev.Replication, ev.Replications)
	case game.EventRoundComplete:
		if ev.RoundResult != nil {
			c.logger.Printf("  round %d: total quantity %.2f", ev.Round, ev.RoundResult.TotalQuantity)
		}
	case game.EventError:
		c.logger.Printf("error: %s", ev.Message)
	}
}
