package main

import (
	"encoding/json"
	"fmt"
	"os"

	"RegimeAPI/internal/di"
	"RegimeAPI/internal/domain/models"
	"RegimeAPI/internal/repository"
	"RegimeAPI/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd serves the API when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "regimeapi",
	Short: "Market quotes and HMM regime detection over HTTP",
	Long: `regimeapi serves historical bars for a fixed set of tickers and fits a
Gaussian hidden Markov model to label each bar with a market regime.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var (
	regimeSymbol      string
	regimeStart       string
	regimeEnd         string
	regimeGranularity string
	regimeCount       int
)

var regimesCmd = &cobra.Command{
	Use:   "regimes",
	Short: "Fit regimes once and print the result as JSON",
	Long: `Fetch bars from the configured provider, fit the regime model and print the
result to stdout.

Examples:
  regimeapi regimes --symbol AAPL --start 2020-01-01 --end 2020-10-31
  regimeapi regimes --symbol MSFT --start 2023-01-01 --end 2023-06-30 --granularity ONE_HOUR --n-regimes 2`,
	RunE: runRegimes,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the supported tickers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return err
		}
		for _, s := range repository.NewSymbolRegistry(cfg.Symbols).List() {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	regimesCmd.Flags().StringVar(&regimeSymbol, "symbol", "", "ticker, e.g. AAPL")
	regimesCmd.Flags().StringVar(&regimeStart, "start", "", "start date (YYYY-MM-DD)")
	regimesCmd.Flags().StringVar(&regimeEnd, "end", "", "end date, inclusive (YYYY-MM-DD)")
	regimesCmd.Flags().StringVar(&regimeGranularity, "granularity", "ONE_DAY", "bar granularity")
	regimesCmd.Flags().IntVar(&regimeCount, "n-regimes", 0, "number of regimes (default from config)")
	_ = regimesCmd.MarkFlagRequired("symbol")
	_ = regimesCmd.MarkFlagRequired("start")
	_ = regimesCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(serveCmd, regimesCmd, symbolsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(cmd.Context())
}

func runRegimes(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	// keep stdout for the result
	cfg.Log.Output = "stderr"
	cfg.Metrics.Enabled = false
	cfg.Log.Collector.Enabled = false

	uc, cleanup, err := di.InitializeRegimeUseCase(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	n := regimeCount
	if !cmd.Flags().Changed("n-regimes") {
		n = uc.DefaultRegimes()
	}

	res, err := uc.DetectRegimes(cmd.Context(), models.RegimeRequest{
		Symbol:      regimeSymbol,
		StartDate:   regimeStart,
		EndDate:     regimeEnd,
		Granularity: regimeGranularity,
		NRegimes:    n,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
