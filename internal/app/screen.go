package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"option-scout/models"
	"option-scout/normalize"
	"option-scout/observability"
	"option-scout/scoring"
)

// ScreenResult pairs the audit record of a batch with its verdicts.
// Verdicts are computed fresh on every run; only the Run is persisted.
type ScreenResult struct {
	Run      *models.ScreenRun `json:"run"`
	Verdicts []models.Verdict  `json:"verdicts"`
}

// screenItem is one observation tagged with the input row index it came
// from, so evaluation failures report the caller's row, not our slice slot.
type screenItem struct {
	index int
	obs   models.OptionObservation
}

// ScreenCSV normalizes a delimited-text export and scores every valid row
// against the given trade parameters. Malformed rows are reported in the
// run's RowErrors; they never abort the batch.
func (a *App) ScreenCSV(ctx context.Context, r io.Reader, trade models.TradeParameters) (*ScreenResult, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	run := models.NewScreenRun("csv", trade)
	log := observability.WithRun(run.ID.String())

	a.createRun(ctx, run)

	rows, err := normalize.ReadRows(r)
	if err != nil {
		run.Fail(err.Error(), timer.Duration().Milliseconds())
		a.updateRun(ctx, run)
		timer.ObserveScreenRun("csv", string(run.Status))
		log.Error("csv screen failed", "error", err)
		return nil, err
	}

	items := make([]screenItem, 0, len(rows))
	var rowErrs []models.RowError
	for _, row := range rows {
		obs, rowErr := normalize.Normalize(row)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			metrics.RecordRowError(rowErr.Field)
			continue
		}
		items = append(items, screenItem{index: row.Index, obs: obs})
	}

	verdicts, evalErrs := a.evaluateItems(items, trade)
	rowErrs = append(rowErrs, evalErrs...)
	sort.Slice(rowErrs, func(i, j int) bool { return rowErrs[i].Index < rowErrs[j].Index })

	run.Complete(len(rows), len(verdicts), rowErrs, timer.Duration().Milliseconds())
	a.updateRun(ctx, run)

	metrics.RecordScreenRows("csv", len(rows))
	timer.ObserveScreenRun("csv", string(run.Status))
	log.Info("csv screen completed",
		"rows_total", run.RowsTotal,
		"rows_scored", run.RowsScored,
		"row_errors", len(run.RowErrors),
		"duration_ms", run.DurationMs)

	return &ScreenResult{Run: run, Verdicts: verdicts}, nil
}

// ScreenChain fetches a live option-chain snapshot and scores every
// contract that carries a quote. A zero expiration picks the latest listed
// expiration within the configured screening horizon.
func (a *App) ScreenChain(ctx context.Context, symbol string, expiration time.Time, trade models.TradeParameters) (*ScreenResult, error) {
	if a.chains == nil {
		return nil, fmt.Errorf("option chain service not configured")
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	run := models.NewScreenRun("chain", trade)
	log := observability.WithRun(run.ID.String())

	a.createRun(ctx, run)

	fail := func(err error) (*ScreenResult, error) {
		run.Fail(err.Error(), timer.Duration().Milliseconds())
		a.updateRun(ctx, run)
		timer.ObserveScreenRun("chain", string(run.Status))
		log.Error("chain screen failed", "symbol", symbol, "error", err)
		return nil, err
	}

	if expiration.IsZero() {
		picked, err := a.pickExpiration(ctx, symbol)
		if err != nil {
			return fail(err)
		}
		expiration = picked
	}

	contracts, err := a.getChain(ctx, symbol, expiration)
	if err != nil {
		return fail(err)
	}

	underlying, indicators, err := a.underlyingSnapshot(ctx, symbol)
	if err != nil {
		return fail(err)
	}

	items := make([]screenItem, 0, len(contracts))
	for i, q := range contracts {
		items = append(items, screenItem{
			index: i + 1,
			obs:   BuildObservation(q, underlying, indicators),
		})
	}

	verdicts, rowErrs := a.evaluateItems(items, trade)
	sort.Slice(rowErrs, func(i, j int) bool { return rowErrs[i].Index < rowErrs[j].Index })

	run.Complete(len(contracts), len(verdicts), rowErrs, timer.Duration().Milliseconds())
	a.updateRun(ctx, run)

	metrics.RecordScreenRows("chain", len(contracts))
	timer.ObserveScreenRun("chain", string(run.Status))
	log.Info("chain screen completed",
		"symbol", symbol,
		"expiration", expiration.Format("2006-01-02"),
		"rows_total", run.RowsTotal,
		"rows_scored", run.RowsScored,
		"duration_ms", run.DurationMs)

	return &ScreenResult{Run: run, Verdicts: verdicts}, nil
}

// EvaluateOne scores a single observation outside of any batch
func (a *App) EvaluateOne(ctx context.Context, obs models.OptionObservation, trade models.TradeParameters) (*models.Verdict, error) {
	verdict, err := scoring.Evaluate(obs, trade)
	if err != nil {
		return nil, err
	}
	observability.GetMetrics().RecordVerdict(string(obs.OptionType), string(verdict.Rating), verdict.Score)
	return &verdict, nil
}

// Ladder re-scores one observation across a range of hypothetical premiums.
// An empty premiums slice uses the default rung set.
func (a *App) Ladder(ctx context.Context, obs models.OptionObservation, trade models.TradeParameters, premiums []float64) ([]scoring.LadderRung, error) {
	if len(premiums) == 0 {
		premiums = scoring.DefaultLadder
	}
	return scoring.PremiumLadder(obs, trade, premiums)
}

// evaluateItems fans evaluations out across goroutines, bounded by the
// screening semaphore. Verdict order follows input order; failures are
// collected as RowErrors keyed by the item's input index.
func (a *App) evaluateItems(items []screenItem, trade models.TradeParameters) ([]models.Verdict, []models.RowError) {
	metrics := observability.GetMetrics()

	results := make([]*models.Verdict, len(items))
	errs := make([]*models.RowError, len(items))

	var wg sync.WaitGroup
	for i := range items {
		a.screenSem <- struct{}{}
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			defer func() { <-a.screenSem }()

			item := items[slot]
			verdict, err := scoring.Evaluate(item.obs, trade)
			if err != nil {
				errs[slot] = &models.RowError{
					Index:  item.index,
					Symbol: item.obs.Symbol,
					Field:  "evaluation",
					Reason: err.Error(),
				}
				return
			}
			results[slot] = &verdict
		}(i)
	}
	wg.Wait()

	verdicts := make([]models.Verdict, 0, len(items))
	var rowErrs []models.RowError
	for i := range items {
		if errs[i] != nil {
			rowErrs = append(rowErrs, *errs[i])
			metrics.RecordRowError(errs[i].Field)
			continue
		}
		v := results[i]
		verdicts = append(verdicts, *v)
		metrics.RecordVerdict(string(items[i].obs.OptionType), string(v.Rating), v.Score)
	}
	return verdicts, rowErrs
}

// pickExpiration chooses the latest listed expiration within the
// configured days-ahead horizon, falling back to the nearest one beyond it
func (a *App) pickExpiration(ctx context.Context, symbol string) (time.Time, error) {
	expirations, err := a.GetExpirations(ctx, symbol)
	if err != nil {
		return time.Time{}, err
	}
	if len(expirations) == 0 {
		return time.Time{}, fmt.Errorf("%w: no listed expirations for %s", models.ErrDataUnavailable, symbol)
	}

	horizon := time.Now().AddDate(0, 0, a.cfg.Screen.DefaultDaysAhead)
	var picked time.Time
	for _, exp := range expirations {
		if exp.After(horizon) {
			continue
		}
		if exp.After(picked) {
			picked = exp
		}
	}
	if picked.IsZero() {
		// everything is beyond the horizon; take the nearest
		picked = expirations[0]
		for _, exp := range expirations[1:] {
			if exp.Before(picked) {
				picked = exp
			}
		}
	}
	return picked, nil
}

// createRun persists the starting run record when a repository is attached
func (a *App) createRun(ctx context.Context, run *models.ScreenRun) {
	if a.repo == nil {
		return
	}
	if err := a.repo.CreateScreenRun(ctx, run); err != nil {
		observability.WithRun(run.ID.String()).Warn("failed to persist screen run", "error", err)
	}
}

// updateRun persists the finished run record when a repository is attached
func (a *App) updateRun(ctx context.Context, run *models.ScreenRun) {
	if a.repo == nil {
		return
	}
	if err := a.repo.UpdateScreenRun(ctx, run); err != nil {
		observability.WithRun(run.ID.String()).Warn("failed to update screen run", "error", err)
	}
}
