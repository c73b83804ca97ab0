// Package cli holds the hedge-machine command tree and its interactive
// prompts.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hedge-machine/config"
	"hedge-machine/models"
	"hedge-machine/observability"
	"hedge-machine/personas"
	"hedge-machine/pipeline"
	"hedge-machine/repository"
	"hedge-machine/risk"
	"hedge-machine/services"
	"hedge-machine/statestore"
)

// runOptions carries the run command's flag values.
type runOptions struct {
	tickers           string
	startDate         string
	endDate           string
	initialCash       float64
	marginRequirement float64
	showReasoning     bool
	personaKeys       []string
	stateStoreURL     string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hedge-machine",
		Short: "Persona-driven financial analysis pipeline",
		Long: `hedge-machine runs a chain of investor personas over a set of tickers,
applies position-limit risk controls, and produces one trading decision
per ticker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive()
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPersonasCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis pipeline",
		Long: `Run the persona chain over the given tickers.
Example: hedge-machine run --tickers AAPL,MSFT --end-date 2025-01-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := ParseTickers(opts.tickers)
			if err != nil {
				return err
			}
			if len(tickers) == 0 {
				return fmt.Errorf("--tickers is required")
			}
			return executeRun(tickers, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tickers, "tickers", "", "Comma-separated ticker symbols (required)")
	cmd.Flags().StringVar(&opts.startDate, "start-date", "", "Analysis window start, YYYY-MM-DD (default: 3 months before end date)")
	cmd.Flags().StringVar(&opts.endDate, "end-date", "", "Analysis window end, YYYY-MM-DD (default: today)")
	cmd.Flags().Float64Var(&opts.initialCash, "initial-cash", 100000, "Starting cash for the simulated portfolio")
	cmd.Flags().Float64Var(&opts.marginRequirement, "margin-requirement", 0, "Margin requirement for short positions")
	cmd.Flags().BoolVar(&opts.showReasoning, "show-reasoning", false, "Print each persona's reasoning")
	cmd.Flags().StringSliceVar(&opts.personaKeys, "personas", nil, "Persona keys to run (default: all)")
	cmd.Flags().StringVar(&opts.stateStoreURL, "state-store", "", "State store service URL (default: in-process file store)")
	cmd.MarkFlagRequired("tickers")

	return cmd
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List available analyst personas",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.NewTestConfig()
			for _, scorer := range personas.BuildAll(nullProvider{}, cfg) {
				fmt.Printf("%-16s %s\n", scorer.Key(), scorer.Name())
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("hedge-machine v1.0.0")
		},
	}
}

// runInteractive gathers the run parameters through prompts.
func runInteractive() error {
	tickers, err := PromptForTickers()
	if err != nil {
		return err
	}
	endDate, err := PromptForEndDate()
	if err != nil {
		return err
	}
	personaKeys, err := PromptForPersonas()
	if err != nil {
		return err
	}

	opts := &runOptions{
		endDate:     endDate,
		initialCash: 100000,
		personaKeys: personaKeys,
	}
	startDate, endDate, err := resolveWindow(opts)
	if err != nil {
		return err
	}
	opts.startDate, opts.endDate = startDate, endDate

	confirmed, err := PromptForConfirmation(tickers, opts.startDate, opts.endDate, personaKeys)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	return executeRun(tickers, opts)
}

// resolveWindow fills in the default dates: end defaults to today, start to
// three months before the end.
func resolveWindow(opts *runOptions) (string, string, error) {
	endDate := opts.endDate
	if endDate == "" {
		endDate = time.Now().Format(models.DateLayout)
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return "", "", fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	startDate := opts.startDate
	if startDate == "" {
		startDate = end.AddDate(0, -3, 0).Format(models.DateLayout)
	}
	if _, err := time.Parse(models.DateLayout, startDate); err != nil {
		return "", "", fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	return startDate, endDate, nil
}

// executeRun wires the configured services together and runs the pipeline.
func executeRun(tickers []string, opts *runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	startDate, endDate, err := resolveWindow(opts)
	if err != nil {
		return err
	}

	if !cfg.HasFinData() {
		return fmt.Errorf("FINDATA_API_KEY is required to fetch fundamentals")
	}
	provider := services.NewFinDataService(cfg.FinData.APIKey, cfg.FinData.BaseURL)

	var quotes services.AlpacaServiceInterface
	if cfg.HasAlpaca() {
		quotes = services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	if opts.stateStoreURL != "" {
		cfg.StateStore.URL = opts.stateStoreURL
	}
	store := buildStore(cfg)

	var recorder pipeline.RunRecorder
	if cfg.HasDatabase() {
		repo, err := repository.NewRepository(context.Background(), cfg.Database.URL)
		if err != nil {
			observability.Warn("database unavailable, running without audit trail", "error", err)
		} else {
			defer repo.Close()
			recorder = repo
		}
	}

	stages, err := pipeline.LoadStages(cfg.Pipeline.PersonaConfigPath)
	if err != nil {
		return err
	}
	stages, err = pipeline.SelectStages(stages, opts.personaKeys)
	if err != nil {
		return err
	}

	riskCalc := risk.NewCalculator(provider, quotes, cfg)
	manager := pipeline.NewPortfolioManager(llm, cfg)

	orch, err := pipeline.NewOrchestrator(stages, provider, store, riskCalc, manager, llm, recorder, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx, pipeline.RunRequest{
		Tickers:           tickers,
		StartDate:         startDate,
		EndDate:           endDate,
		InitialCash:       decimal.NewFromFloat(opts.initialCash),
		MarginRequirement: decimal.NewFromFloat(opts.marginRequirement),
		ShowReasoning:     opts.showReasoning,
	})
	if err != nil {
		return err
	}

	printResult(result, opts.showReasoning)
	return nil
}

// buildLLM picks the configured model backend: Bedrock wins when both are
// set, and nil disables narration and model decisions entirely.
func buildLLM(cfg *config.Config) (services.LLMService, error) {
	if cfg.HasBedrock() {
		svc, err := services.NewBedrockService(context.Background(), cfg.Bedrock.Region, cfg.Bedrock.ModelID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Bedrock: %w", err)
		}
		return svc, nil
	}
	if cfg.HasOpenAI() {
		return services.NewOpenAIService(cfg)
	}
	observability.Warn("no model backend configured, decisions will be synthesized from signals")
	return nil, nil
}

// buildStore talks to a remote state store when one is configured and falls
// back to a local file otherwise.
func buildStore(cfg *config.Config) *statestore.Serialized {
	if cfg.StateStore.URL != "" {
		return statestore.NewSerialized(statestore.NewClient(cfg.StateStore.URL))
	}
	return statestore.NewSerialized(statestore.NewFileStore(cfg.StateStore.FilePath))
}

func printResult(result *pipeline.RunResult, showReasoning bool) {
	tickers := make([]string, 0, len(result.Decisions))
	for ticker := range result.Decisions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	fmt.Printf("\n=== DECISIONS ===\n")
	for _, ticker := range tickers {
		d := result.Decisions[ticker]
		fmt.Printf("%-8s %-6s qty %-6d confidence %5.1f\n", ticker, strings.ToUpper(string(d.Action)), d.Quantity, d.Confidence)
		if d.Reasoning != "" {
			fmt.Printf("         %s\n", d.Reasoning)
		}
	}

	fmt.Printf("\n=== ANALYST SIGNALS ===\n")
	personaNames := make([]string, 0, len(result.AnalystSignals))
	for persona := range result.AnalystSignals {
		if persona == risk.Key {
			continue
		}
		personaNames = append(personaNames, persona)
	}
	sort.Strings(personaNames)

	for _, persona := range personaNames {
		fmt.Printf("\n%s:\n", persona)
		for _, ticker := range tickers {
			record := result.AnalystSignals[persona][ticker]
			if record == nil {
				fmt.Printf("  %-8s failed\n", ticker)
				continue
			}
			fmt.Printf("  %-8s %-8s %d/%d\n", ticker, record.Signal, record.Score, record.MaxScore)
			if showReasoning && record.Reasoning != "" {
				fmt.Printf("           %s\n", record.Reasoning)
			}
		}
	}
}

// nullProvider satisfies the persona data dependency for commands that only
// inspect persona metadata.
type nullProvider struct{}

func (nullProvider) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	return nil, nil
}
func (nullProvider) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	return nil, nil
}
func (nullProvider) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	return nil, nil
}
func (nullProvider) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	return nil, nil
}
func (nullProvider) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.NewsArticle, error) {
	return nil, nil
}
func (nullProvider) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	return nil, nil
}
