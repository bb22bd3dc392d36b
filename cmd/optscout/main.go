// optscout is the command-line front end to the contract screener: score a
// broker CSV export, a live option chain, or a premium ladder without
// running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"option-scout/config"
	"option-scout/internal/app"
	"option-scout/models"
	"option-scout/normalize"
	"option-scout/observability"
	"option-scout/repository"
	"option-scout/scoring"
	"option-scout/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagPremium      float64
	flagPurchaseDate string
	flagFile         string
	flagExpiration   string
	flagRow          int
	flagPremiums     []float64
	flagJSON         bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "optscout",
		Short:        "Heuristic options-contract screener",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			observability.InitLogger(false)
			observability.InitMetrics()
		},
	}

	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON instead of a table")

	root.AddCommand(screenCmd(), chainCmd(), ladderCmd())
	return root
}

func screenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Score every contract in a CSV export",
		RunE: func(cmd *cobra.Command, args []string) error {
			trade, err := tradeFromFlags()
			if err != nil {
				return err
			}

			file, err := os.Open(flagFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", flagFile, err)
			}
			defer file.Close()

			a, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := a.ScreenCSV(cmd.Context(), file, trade)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(result)
			}
			printVerdicts(result.Verdicts)
			printRowErrors(result.Run.RowErrors)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFile, "file", "", "CSV export to score")
	cmd.Flags().Float64Var(&flagPremium, "premium", 0, "premium paid per share")
	cmd.Flags().StringVar(&flagPurchaseDate, "purchase-date", "", "purchase date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("premium")
	return cmd
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain SYMBOL",
		Short: "Fetch a live option chain and score every contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trade, err := tradeFromFlags()
			if err != nil {
				return err
			}

			var expiration time.Time
			if flagExpiration != "" {
				expiration, err = time.Parse("2006-01-02", flagExpiration)
				if err != nil {
					return fmt.Errorf("invalid expiration %q", flagExpiration)
				}
			}

			a, cleanup, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			symbol := strings.ToUpper(args[0])
			result, err := a.ScreenChain(cmd.Context(), symbol, expiration, trade)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(result)
			}
			printVerdicts(result.Verdicts)
			printRowErrors(result.Run.RowErrors)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagExpiration, "expiration", "", "expiration date (YYYY-MM-DD, default nearest within horizon)")
	cmd.Flags().Float64Var(&flagPremium, "premium", 0, "premium paid per share")
	cmd.Flags().StringVar(&flagPurchaseDate, "purchase-date", "", "purchase date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("premium")
	return cmd
}

func ladderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Re-score one CSV row across a range of premiums",
		RunE: func(cmd *cobra.Command, args []string) error {
			trade, err := tradeFromFlags()
			if err != nil {
				return err
			}

			file, err := os.Open(flagFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", flagFile, err)
			}
			defer file.Close()

			rows, err := normalize.ReadRows(file)
			if err != nil {
				return err
			}

			var obs *models.OptionObservation
			for _, row := range rows {
				if row.Index != flagRow {
					continue
				}
				parsed, rowErr := normalize.Normalize(row)
				if rowErr != nil {
					return rowErr
				}
				obs = &parsed
				break
			}
			if obs == nil {
				return fmt.Errorf("row %d not found in %s", flagRow, flagFile)
			}

			rungs, err := scoring.PremiumLadder(*obs, trade, flagPremiums)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(rungs)
			}
			printLadder(*obs, rungs)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFile, "file", "", "CSV export containing the contract")
	cmd.Flags().IntVar(&flagRow, "row", 1, "1-based data row to analyze")
	cmd.Flags().Float64SliceVar(&flagPremiums, "premiums", nil, "candidate premiums (default ladder when omitted)")
	cmd.Flags().StringVar(&flagPurchaseDate, "purchase-date", "", "purchase date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// buildApp assembles an App from environment configuration. Market data and
// chain services are created only when their credentials are present; the
// repository only when DATABASE_URL is set.
func buildApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var repo app.RepositoryInterface
	cleanup := func() {}
	if cfg.Database.URL != "" {
		r, err := repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("database unavailable, caching and run history disabled", "error", err)
		} else {
			repo = r
			cleanup = r.Close
		}
	}

	var marketData services.MarketDataServiceInterface
	if cfg.Alpaca.APIKey != "" {
		marketData = services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	}

	var chains services.OptionChainServiceInterface
	if cfg.Tradier.APIKey != "" {
		chains = services.NewTradierService(cfg.Tradier.APIKey, cfg.Tradier.BaseURL,
			cfg.Tradier.RequestsPerSec, time.Duration(cfg.Tradier.TimeoutSeconds)*time.Second)
	}

	return app.New(cfg, repo, marketData, chains), cleanup, nil
}

func tradeFromFlags() (models.TradeParameters, error) {
	trade := models.TradeParameters{
		Premium:      flagPremium,
		PurchaseDate: models.CalendarDate(time.Now()),
	}
	if flagPurchaseDate != "" {
		date, err := time.Parse("2006-01-02", flagPurchaseDate)
		if err != nil {
			return trade, fmt.Errorf("invalid purchase date %q", flagPurchaseDate)
		}
		trade.PurchaseDate = date
	}
	return trade, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerdicts(verdicts []models.Verdict) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSCORE\tRATING\tREASONS")
	for _, v := range verdicts {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", v.Symbol, v.Score, v.Rating, strings.Join(v.Reasons, "; "))
	}
	w.Flush()
}

func printRowErrors(rowErrs []models.RowError) {
	if len(rowErrs) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%d row(s) skipped:\n", len(rowErrs))
	for i := range rowErrs {
		fmt.Fprintln(os.Stderr, " ", rowErrs[i].Error())
	}
}

func printLadder(obs models.OptionObservation, rungs []scoring.LadderRung) {
	fmt.Printf("%s\n", obs.Key())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PREMIUM\tSCORE\tRATING")
	for _, rung := range rungs {
		fmt.Fprintf(w, "%.2f\t%d\t%s\n", rung.Premium, rung.Verdict.Score, rung.Verdict.Rating)
	}
	w.Flush()
}
