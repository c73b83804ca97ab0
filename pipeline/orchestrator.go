package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hedge-machine/config"
	"hedge-machine/models"
	"hedge-machine/observability"
	"hedge-machine/personas"
	"hedge-machine/risk"
	"hedge-machine/services"
	"hedge-machine/statestore"
)

// RunRecorder persists audit records for stage executions and decisions.
// A nil recorder disables persistence without changing pipeline behavior.
type RunRecorder interface {
	RecordPersonaRun(ctx context.Context, run *models.PersonaRun) error
	RecordDecision(ctx context.Context, decision *models.Decision) error
}

// RunRequest describes one pipeline run.
type RunRequest struct {
	Tickers           []string
	StartDate         string
	EndDate           string
	InitialCash       decimal.Decimal
	MarginRequirement decimal.Decimal
	ShowReasoning     bool
}

// RunResult is the run's terminal output plus the full signal map for
// inspection.
type RunResult struct {
	Decisions      map[string]*models.Decision
	AnalystSignals map[string]map[string]*models.SignalRecord
}

// Orchestrator drives a run: it seeds the shared state, walks every ticker
// through the persona chain, applies the risk stage, and hands the finished
// state to the portfolio manager.
type Orchestrator struct {
	stages   []Stage
	scorers  map[string]personas.Scorer
	store    *statestore.Serialized
	riskCalc *risk.Calculator
	manager  *PortfolioManager
	llm      services.LLMService // optional narration
	recorder RunRecorder         // optional audit persistence
	cfg      *config.Config
}

// NewOrchestrator builds an orchestrator for the given stage chain. The
// scorer for every stage key must exist in the persona registry.
func NewOrchestrator(
	stages []Stage,
	provider services.FinDataServiceInterface,
	store *statestore.Serialized,
	riskCalc *risk.Calculator,
	manager *PortfolioManager,
	llm services.LLMService,
	recorder RunRecorder,
	cfg *config.Config,
) (*Orchestrator, error) {
	keys := make([]string, len(stages))
	for i, stage := range stages {
		keys[i] = stage.Key
	}
	scorers, err := personas.Build(keys, provider, cfg)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]personas.Scorer, len(scorers))
	for _, s := range scorers {
		byKey[s.Key()] = s
	}

	return &Orchestrator{
		stages:   stages,
		scorers:  byKey,
		store:    store,
		riskCalc: riskCalc,
		manager:  manager,
		llm:      llm,
		recorder: recorder,
		cfg:      cfg,
	}, nil
}

// Run executes one complete pipeline run. Persona failures are soft: the
// failed stage's signal is recorded as an explicit nil and the run
// continues. Only state-store failures and context cancellation abort.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	metrics := observability.GetMetrics()
	started := time.Now()

	state := models.NewAgentState(req.Tickers, req.StartDate, req.EndDate,
		models.NewPortfolio(req.Tickers, req.InitialCash, req.MarginRequirement),
		req.ShowReasoning)
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run request: %w", err)
	}
	if err := o.store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to seed run state: %w", err)
	}

	observability.Info("pipeline run starting",
		"tickers", req.Tickers,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
		"stages", len(o.stages))

	if err := o.runTickers(ctx, req); err != nil {
		metrics.RecordPipelineError("all", "ticker_loop")
		return nil, err
	}

	if err := o.riskCalc.Apply(ctx, o.store); err != nil {
		metrics.RecordPipelineError("all", "risk")
		return nil, fmt.Errorf("risk stage failed: %w", err)
	}

	final, err := o.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load final state: %w", err)
	}

	decisions := o.manager.Decide(ctx, final)
	o.recordDecisions(ctx, decisions)

	for _, ticker := range req.Tickers {
		metrics.RecordPipelineRun(ticker)
		metrics.RecordPipelineDuration(ticker, "completed", time.Since(started))
		if d := decisions[ticker]; d != nil {
			metrics.RecordDecision(string(d.Action), d.Confidence)
		}
	}

	observability.Info("pipeline run finished",
		"tickers", len(req.Tickers),
		"duration_ms", time.Since(started).Milliseconds())

	return &RunResult{
		Decisions:      decisions,
		AnalystSignals: final.AnalystSignals,
	}, nil
}

// runTickers walks every ticker through the persona chain, at most
// ConcurrencyLimit tickers in flight. The chain within one ticker is
// strictly sequential so each stage can read its predecessor's output.
func (o *Orchestrator) runTickers(ctx context.Context, req RunRequest) error {
	sem := make(chan struct{}, o.cfg.Pipeline.ConcurrencyLimit)
	var wg sync.WaitGroup

	for _, ticker := range req.Tickers {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runTicker(ctx, ticker, req.EndDate)
		}(ticker)
	}

	wg.Wait()
	return ctx.Err()
}

// runTicker runs the stage chain for one ticker. Each stage's serialized
// record becomes the next stage's upstream analysis; a failed stage resets
// the chain's analysis data so the next stage starts fresh.
func (o *Orchestrator) runTicker(ctx context.Context, ticker, endDate string) {
	var analysisData string

	for _, stage := range o.stages {
		if ctx.Err() != nil {
			return
		}

		record := o.runStage(ctx, stage, ticker, endDate, analysisData)
		if err := o.mergeRecord(ctx, stage.Key, ticker, record); err != nil {
			observability.Error("failed to store stage signal",
				"persona", stage.Key,
				"ticker", ticker,
				"error", err)
			return
		}

		if record == nil {
			analysisData = ""
			continue
		}
		serialized, err := json.Marshal(record)
		if err != nil {
			analysisData = ""
			continue
		}
		analysisData = string(serialized)
	}
}

// runStage scores one persona for one ticker and optionally narrates the
// result. A nil return is the stage's failure sentinel.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, ticker, endDate, analysisData string) *models.SignalRecord {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	run := models.NewPersonaRun(stage.Key, ticker)

	scorer := o.scorers[stage.Key]

	dataCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.Pipeline.DataTimeoutSeconds)*time.Second)
	record, err := scorer.Score(dataCtx, ticker, endDate)
	cancel()
	timer.ObservePersona(stage.Key)

	if err != nil {
		metrics.RecordPersonaError(stage.Key, "score")
		observability.Warn("persona scoring failed, recording failure sentinel",
			"persona", stage.Key,
			"ticker", ticker,
			"error", err)
		run.Fail(err)
		o.recordRun(ctx, run)
		return nil
	}

	metrics.RecordPersonaSignal(stage.Key, string(record.Signal), record.Ratio())
	o.narrate(ctx, stage, ticker, endDate, analysisData, record)

	run.Complete(map[string]interface{}{
		"signal":    record.Signal,
		"score":     record.Score,
		"max_score": record.MaxScore,
	})
	o.recordRun(ctx, run)
	return record
}

// narrate replaces the record's mechanical reasoning with the model's prose
// when a model is configured. Narration is best effort: any failure keeps
// the deterministic record untouched.
func (o *Orchestrator) narrate(ctx context.Context, stage Stage, ticker, endDate, analysisData string, record *models.SignalRecord) {
	if o.llm == nil || stage.Instructions == "" {
		return
	}

	scored, err := json.Marshal(record)
	if err != nil {
		return
	}
	message := RenderMessage(stage.MessageTemplate, ticker, endDate, analysisData)
	message = fmt.Sprintf("%s\n\nScored analysis:\n%s", message, scored)

	llmCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.Pipeline.LLMTimeoutSeconds)*time.Second)
	defer cancel()

	var narrated struct {
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := o.llm.InvokeStructured(llmCtx, stage.Instructions, message, &narrated); err != nil {
		observability.Warn("narration failed, keeping deterministic reasoning",
			"persona", stage.Key,
			"ticker", ticker,
			"error", err)
		return
	}
	if narrated.Reasoning != "" {
		record.Reasoning = narrated.Reasoning
	}
}

func (o *Orchestrator) mergeRecord(ctx context.Context, persona, ticker string, record *models.SignalRecord) error {
	return o.store.Update(ctx, func(state *models.AgentState) error {
		state.MergeSignal(persona, ticker, record)
		return nil
	})
}

func (o *Orchestrator) recordRun(ctx context.Context, run *models.PersonaRun) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordPersonaRun(ctx, run); err != nil {
		observability.Warn("failed to persist stage run",
			"persona", run.Persona,
			"ticker", run.Ticker,
			"error", err)
	}
}

func (o *Orchestrator) recordDecisions(ctx context.Context, decisions map[string]*models.Decision) {
	if o.recorder == nil {
		return
	}
	for _, decision := range decisions {
		if err := o.recorder.RecordDecision(ctx, decision); err != nil {
			observability.Warn("failed to persist decision",
				"ticker", decision.Ticker,
				"error", err)
		}
	}
}
