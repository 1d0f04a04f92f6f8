package application

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// errClosed stops a workflow that was cancelled while a stage was running.
var errClosed = goerrors.New("workflow closed")

type stageStep struct {
	stage models.Stage
	run   func(ctx context.Context, e *entry, ids []string) error
}

// run advances one workflow from Queued to a terminal stage. A workflow whose
// components are still owned by earlier scans is parked and the worker moves on.
func (o *Orchestrator) run(ctx context.Context, scanID string) {
	e, ids, ok := o.claim(ctx, scanID)
	if !ok {
		return
	}
	defer o.unclaim(e)

	ctx = context.WithValue(ctx, constants.ContextKeyScanID, scanID)
	ctx, span := o.tracer.Start(ctx, "workflow", o.traceAttrs(scanID))
	defer span.End()

	err := o.advanceAll(ctx, e, ids)
	if err != nil && !goerrors.Is(err, errClosed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.finish(ctx, scanID, err)
}

// claim marks a live workflow running once it owns every component it scans.
func (o *Orchestrator) claim(ctx context.Context, scanID string) (*entry, []string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.live[scanID]
	if !ok || e.closed {
		return nil, nil, false
	}
	if !e.granted {
		if !o.serializer.Enter(scanID, e.wf.ComponentIDs) {
			o.logger.Debug(ctx, "scan waiting for components", logger.String("scan_id", scanID))
			return nil, nil, false
		}
		e.granted = true
	}
	e.running = true
	return e, append([]string(nil), e.wf.ComponentIDs...), true
}

func (o *Orchestrator) unclaim(e *entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e.running = false
	o.releaseLocked(e.scanID)
}

// releaseLocked gives up the components of scanID and dispatches the parked
// workflows that now own all of theirs. Callers hold o.mu.
func (o *Orchestrator) releaseLocked(scanID string) {
	pending := []string{scanID}
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		for _, next := range o.serializer.Leave(id) {
			e, ok := o.live[next]
			if !ok || e.closed {
				pending = append(pending, next)
				continue
			}
			e.granted = true
			o.queue.resume(next)
		}
	}
}

func (o *Orchestrator) advanceAll(ctx context.Context, e *entry, ids []string) error {
	steps := []stageStep{
		{models.StageExtracting, o.extractAll},
		{models.StageAssessing, o.assessAll},
		{models.StageAuditing, o.auditAll},
		{models.StageSyncing, o.syncAll},
	}
	for _, step := range steps {
		if err := o.transition(e, step.stage); err != nil {
			return err
		}
		if err := o.runStage(ctx, e, ids, step); err != nil {
			return err
		}
	}
	return o.transition(e, models.StageCompleted)
}

func (o *Orchestrator) runStage(ctx context.Context, e *entry, ids []string, step stageStep) error {
	ctx, span := o.tracer.Start(ctx, "stage."+string(step.stage), o.traceAttrs(e.scanID))
	defer span.End()
	span.SetAttributes(attribute.Int("components", len(ids)))

	start := time.Now()
	counter := o.inflight[step.stage]
	counter.Add(int32(len(ids)))
	err := step.run(ctx, e, ids)
	counter.Sub(int32(len(ids)))

	if goerrors.Is(err, errClosed) {
		return err
	}
	o.deps.Metrics.RecordStage(string(step.stage), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn(ctx, "stage failed",
			logger.String("scan_id", e.scanID),
			logger.String("stage", string(step.stage)),
			logger.String("kind", string(errors.KindOf(err))),
			logger.Error(err),
		)
	}
	return err
}

// transition moves the workflow forward unless it was closed meanwhile.
func (o *Orchestrator) transition(e *entry, to models.Stage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e.closed || e.wf.IsTerminal() {
		return errClosed
	}
	return e.wf.Advance(to, o.now())
}

// commit applies stage results unless the workflow was closed meanwhile.
func (o *Orchestrator) commit(e *entry, apply func(wf *models.Workflow)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e.closed || e.wf.IsTerminal() {
		return errClosed
	}
	apply(e.wf)
	e.wf.UpdatedAt = o.now()
	return nil
}

// finish makes a workflow terminal and retires it. A workflow already retired by
// Cancel is left untouched.
func (o *Orchestrator) finish(ctx context.Context, scanID string, err error) {
	o.mu.Lock()
	e, ok := o.live[scanID]
	if !ok || e.closed {
		o.mu.Unlock()
		if goerrors.Is(err, errClosed) || err == nil {
			o.logger.Debug(ctx, "discarded results of closed workflow", logger.String("scan_id", scanID))
		}
		return
	}
	if err != nil && !e.wf.IsTerminal() {
		_ = e.wf.Fail(string(errors.KindOf(err)), err.Error(), o.now())
	}
	snap := o.retireLocked(e)
	o.mu.Unlock()

	if snap.Stage == models.StageCompleted {
		o.logger.Info(ctx, "scan completed",
			logger.String("scan_id", scanID),
			logger.Duration("elapsed", snap.UpdatedAt.Sub(snap.CreatedAt)),
		)
	} else {
		o.logger.Warn(ctx, "scan failed",
			logger.String("scan_id", scanID),
			logger.String("failed_stage", string(snap.FailedStage)),
			logger.String("cause", snap.FailureCause),
		)
	}
	o.afterRetire(ctx, snap)
}

func (o *Orchestrator) recordRetry(ctx context.Context, e *entry, stage models.Stage, kind errors.Kind, wait time.Duration) {
	o.mu.Lock()
	if !e.closed && e.wf.Stage == stage {
		e.wf.RecordRetry(o.now())
	}
	o.mu.Unlock()
	o.deps.Metrics.RecordStageRetry(string(stage), string(kind))
	o.logger.Debug(ctx, "retrying stage",
		logger.String("scan_id", e.scanID),
		logger.String("stage", string(stage)),
		logger.String("kind", string(kind)),
		logger.Duration("wait", wait),
	)
}

// callStage runs fn under the stage timeout and retries retryable failures with
// capped exponential backoff. A call that outlives its timeout is abandoned; its
// result is dropped.
func callStage[T any](ctx context.Context, o *Orchestrator, e *entry, stage models.Stage, fn func(context.Context) (T, error)) (T, error) {
	timeout := o.cfg.StageTimeout
	type outcome struct {
		v   T
		err error
	}
	op := func() (T, error) {
		var zero T
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ch := make(chan outcome, 1)
		go func() {
			v, err := fn(callCtx)
			ch <- outcome{v, err}
		}()
		select {
		case out := <-ch:
			if out.err == nil {
				return out.v, nil
			}
			if !errors.Retryable(out.err) || errors.KindOf(out.err) == errors.KindLowConfidenceExtraction {
				return zero, backoff.Permanent(out.err)
			}
			return zero, out.err
		case <-callCtx.Done():
			if ctx.Err() != nil {
				return zero, backoff.Permanent(errors.ErrCancelled(e.scanID).WithCause(ctx.Err()))
			}
			return zero, errors.ErrStageTimeout(string(stage), timeout)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.BackoffInitial
	b.MaxInterval = o.cfg.BackoffMax
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.RetryBudget)), ctx)

	return backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		o.recordRetry(ctx, e, stage, errors.KindOf(err), wait)
	})
}

// dependencyError marks untyped collaborator failures as retryable.
func dependencyError(dependency string, err error) error {
	if err == nil {
		return nil
	}
	var ge errors.GridError
	if errors.As(err, &ge) {
		return err
	}
	return errors.ErrDependencyUnavailable(dependency, err)
}

func (o *Orchestrator) readings(e *entry, ids []string) []models.Reading {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.Reading, len(ids))
	for i, id := range ids {
		if r := e.wf.Results[id]; r != nil && r.Reading != nil {
			out[i] = *r.Reading
		}
	}
	return out
}

func (o *Orchestrator) extractAll(ctx context.Context, e *entry, ids []string) error {
	sector := e.wf.SectorID
	results := make([]*service.ExtractionResult, len(ids))
	rescans := make([]int, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			res, n, err := o.extractOne(gctx, e, sector, id)
			if err != nil {
				return err
			}
			results[i], rescans[i] = res, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return o.commit(e, func(wf *models.Workflow) {
		for i, id := range ids {
			r := wf.Result(id)
			reading := results[i].Reading
			r.Reading = &reading
			r.ExtractionConfidence = results[i].Confidence
			r.RescanAttempts = rescans[i]
		}
	})
}

// extractOne captures and extracts one component, rescanning while confidence
// stays below the threshold and the rescan budget allows.
func (o *Orchestrator) extractOne(ctx context.Context, e *entry, sector, componentID string) (*service.ExtractionResult, int, error) {
	for rescans := 0; ; rescans++ {
		res, err := callStage(ctx, o, e, models.StageExtracting, func(ctx context.Context) (*service.ExtractionResult, error) {
			capture, err := o.deps.Capture.Capture(ctx, sector, componentID)
			if err != nil {
				return nil, dependencyError("capture source", err)
			}
			return o.deps.Extractor.Extract(ctx, capture)
		})
		if err != nil {
			return nil, rescans, err
		}
		if !res.RequiresRescan {
			return res, rescans, nil
		}
		if rescans >= o.cfg.RetryBudget {
			if o.cfg.AcceptAfterRescanBudget && rescans > 0 {
				o.logger.Warn(ctx, "accepting low-confidence reading after rescan budget",
					logger.String("component_id", componentID),
					logger.Float64("confidence", res.Confidence),
					logger.Int("rescans", rescans),
				)
				return res, rescans, nil
			}
			return nil, rescans, errors.ErrLowConfidence(componentID, res.Confidence, constants.ExtractionConfidenceThreshold)
		}
		o.recordRetry(ctx, e, models.StageExtracting, errors.KindLowConfidenceExtraction, 0)
	}
}

func (o *Orchestrator) assessAll(ctx context.Context, e *entry, ids []string) error {
	readings := o.readings(e, ids)
	assessments := make([]*models.RiskAssessment, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			a, err := callStage(gctx, o, e, models.StageAssessing, func(ctx context.Context) (*models.RiskAssessment, error) {
				series, err := o.deps.History.GetSeries(ctx, id, o.cfg.SeriesWindow)
				if err != nil {
					return nil, dependencyError("historical store", err)
				}
				return o.deps.Reasoner.Assess(ctx, readings[i], series)
			})
			if err != nil {
				return err
			}
			assessments[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := o.commit(e, func(wf *models.Workflow) {
		for i, id := range ids {
			wf.Result(id).Assessment = assessments[i]
		}
	}); err != nil {
		return err
	}
	for _, a := range assessments {
		o.deps.Metrics.RecordRiskCategory(string(a.Category()))
	}
	return nil
}

func (o *Orchestrator) auditAll(ctx context.Context, e *entry, ids []string) error {
	readings := o.readings(e, ids)
	o.mu.RLock()
	assessments := make([]*models.RiskAssessment, len(ids))
	for i, id := range ids {
		assessments[i] = e.wf.Results[id].Assessment
	}
	o.mu.RUnlock()

	records := make([]*models.ComplianceRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i := range ids {
		i := i
		g.Go(func() error {
			rec, err := callStage(gctx, o, e, models.StageAuditing, func(ctx context.Context) (*models.ComplianceRecord, error) {
				return o.deps.Validator.Audit(ctx, readings[i], assessments[i])
			})
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := o.commit(e, func(wf *models.Workflow) {
		for i, id := range ids {
			wf.Result(id).Compliance = records[i]
		}
	}); err != nil {
		return err
	}
	for _, rec := range records {
		for _, code := range rec.Citations() {
			o.deps.Metrics.RecordViolation(code)
		}
	}
	return nil
}

// syncAll upserts each component into the twin once, then appends its reading to
// the history while the component is still held by this workflow.
func (o *Orchestrator) syncAll(ctx context.Context, e *entry, ids []string) error {
	readings := o.readings(e, ids)
	o.mu.RLock()
	assessments := make([]*models.RiskAssessment, len(ids))
	records := make([]*models.ComplianceRecord, len(ids))
	for i, id := range ids {
		assessments[i] = e.wf.Results[id].Assessment
		records[i] = e.wf.Results[id].Compliance
	}
	o.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if o.isClosed(e) {
				return errClosed
			}
			if _, err := callStage(gctx, o, e, models.StageSyncing, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, dependencyError("twin gateway", o.deps.Twin.Upsert(ctx, e.scanID, readings[i], records[i], assessments[i]))
			}); err != nil {
				return err
			}
			if _, err := callStage(gctx, o, e, models.StageSyncing, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, dependencyError("historical store", o.deps.History.Append(ctx, readings[i]))
			}); err != nil {
				return err
			}
			return o.commit(e, func(wf *models.Workflow) {
				wf.Result(id).Synced = true
			})
		})
	}
	return g.Wait()
}

func (o *Orchestrator) isClosed(e *entry) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return e.closed
}
