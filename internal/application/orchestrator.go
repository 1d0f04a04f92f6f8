package application

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
	"github.com/turtacn/astragrid/pkg/utils"
)

// Config tunes the orchestrator.
type Config struct {
	Workers               int
	QueueSize             int
	RetryBudget           int
	StageTimeout          time.Duration
	BackoffInitial        time.Duration
	BackoffMax            time.Duration
	SeriesWindow          time.Duration
	DefaultComponentCount int
	ArchiveTTL            time.Duration

	// AcceptAfterRescanBudget keeps the last low-confidence reading once the rescan
	// budget is spent instead of failing the workflow.
	AcceptAfterRescanBudget bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:               constants.DefaultWorkers,
		QueueSize:             constants.DefaultQueueSize,
		RetryBudget:           constants.DefaultRetryBudget,
		StageTimeout:          constants.DefaultStageTimeout,
		BackoffInitial:        constants.DefaultBackoffInitial,
		BackoffMax:            constants.DefaultBackoffMax,
		SeriesWindow:          constants.DefaultSeriesWindow,
		DefaultComponentCount: constants.DefaultComponentCount,
		ArchiveTTL:            constants.DefaultArchiveTTL,
	}
}

// Dependencies are the collaborators injected into the orchestrator.
// Scans and Metrics are optional.
type Dependencies struct {
	Capture   service.CaptureSource
	Extractor service.Extractor
	Reasoner  service.RiskReasoner
	Validator service.ComplianceValidator
	Twin      service.TwinGateway
	History   repository.HistoricalStore
	Scans     repository.ScanRepository
	Metrics   service.Metrics
	Logger    logger.Logger
}

// entry is the registry slot of a live workflow. Every field but scanID is guarded
// by Orchestrator.mu. granted is set once the workflow owns its components; running
// while a worker drives it.
type entry struct {
	scanID  string
	wf      *models.Workflow
	done    chan struct{}
	closed  bool
	granted bool
	running bool
}

// Orchestrator drives scan workflows through extraction, assessment, audit and
// twin sync. It is the only writer of workflow state.
type Orchestrator struct {
	cfg  Config
	deps Dependencies

	mu   sync.RWMutex
	live map[string]*entry

	queue      *priorityQueue
	serializer *ComponentSerializer
	archive    *Archive
	inflight   map[models.Stage]*atomic.Int32

	started     *atomic.Bool
	closing     *atomic.Bool
	cancelRun   context.CancelFunc
	stopPicking context.CancelFunc
	wg          sync.WaitGroup

	now    func() time.Time
	tracer trace.Tracer
	logger logger.Logger
}

// NewOrchestrator wires an orchestrator. Start must be called before queued work runs.
func NewOrchestrator(cfg Config, deps Dependencies) *Orchestrator {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.RetryBudget < 0 {
		cfg.RetryBudget = def.RetryBudget
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = def.StageTimeout
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = cfg.BackoffInitial
	}
	if cfg.SeriesWindow <= 0 {
		cfg.SeriesWindow = def.SeriesWindow
	}
	if cfg.DefaultComponentCount <= 0 {
		cfg.DefaultComponentCount = def.DefaultComponentCount
	}
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = def.ArchiveTTL
	}
	if deps.Metrics == nil {
		deps.Metrics = service.NoopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	log := deps.Logger.WithComponent("Orchestrator")

	inflight := make(map[models.Stage]*atomic.Int32, 4)
	for _, st := range []models.Stage{models.StageExtracting, models.StageAssessing, models.StageAuditing, models.StageSyncing} {
		inflight[st] = atomic.NewInt32(0)
	}

	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		live:       make(map[string]*entry),
		queue:      newPriorityQueue(cfg.QueueSize),
		serializer: NewComponentSerializer(),
		archive:    NewArchive(cfg.ArchiveTTL, deps.Scans, deps.Logger),
		inflight:   inflight,
		started:    atomic.NewBool(false),
		closing:    atomic.NewBool(false),
		now:        func() time.Time { return time.Now().UTC() },
		tracer:     otel.Tracer("astragrid/orchestrator"),
		logger:     log,
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	if !o.started.CAS(false, true) {
		return
	}
	base := context.WithoutCancel(ctx)
	runCtx, cancelRun := context.WithCancel(base)
	pickCtx, stopPicking := context.WithCancel(base)
	o.cancelRun, o.stopPicking = cancelRun, stopPicking
	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.work(pickCtx, runCtx)
	}
	o.logger.Info(ctx, "orchestrator started",
		logger.Int("workers", o.cfg.Workers),
		logger.Int("queue_size", o.cfg.QueueSize),
	)
}

// Shutdown stops accepting work and lets workers finish their current workflow.
// If ctx expires first, in-flight workflows are cancelled. Workflows still queued
// fail with a shutdown cause.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	already := o.closing.Swap(true)
	o.mu.Unlock()
	if already {
		return nil
	}
	o.logger.Info(ctx, "orchestrator shutting down", logger.Int("queued", o.queue.depth()))

	var err error
	if o.started.Load() {
		o.stopPicking()
		done := make(chan struct{})
		go func() {
			o.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
			o.cancelRun()
			<-done
		}
		o.cancelRun()
	}

	// queued, parked and resumed-but-unstarted workflows are all still live here
	o.queue.drain()
	for _, scanID := range o.liveIDs() {
		o.finish(ctx, scanID, errors.ErrShuttingDown())
	}
	o.logger.Info(ctx, "orchestrator stopped")
	return err
}

// Submit validates and queues a scan. With no component ids the sector's known
// twin components are scanned, or a generated sequence when the twin has none.
func (o *Orchestrator) Submit(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error) {
	if o.closing.Load() {
		return nil, errors.ErrShuttingDown()
	}
	if !utils.ValidateSectorFormat(sectorID) {
		return nil, errors.ErrInvalidSector(sectorID)
	}
	ids := o.resolveComponents(ctx, sectorID, componentIDs)
	now := o.now()
	wf := models.NewWorkflow(utils.NewScanID(sectorID, now), sectorID, models.ParsePriority(string(priority)), ids, now)
	e := &entry{scanID: wf.ScanID, wf: wf, done: make(chan struct{})}

	o.mu.Lock()
	if o.closing.Load() {
		o.mu.Unlock()
		return nil, errors.ErrShuttingDown()
	}
	if err := o.queue.push(wf.Priority, e.scanID); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.live[e.scanID] = e
	snap := wf.Snapshot()
	active := len(o.live)
	o.mu.Unlock()

	o.deps.Metrics.RecordWorkflowSubmitted(string(wf.Priority))
	o.deps.Metrics.SetActiveWorkflows(active)
	o.logger.Info(ctx, "scan queued",
		logger.String("scan_id", e.scanID),
		logger.String("sector", sectorID),
		logger.String("priority", string(wf.Priority)),
		logger.Int("components", len(ids)),
	)
	return snap, nil
}

// Status returns the latest snapshot of a workflow, live or archived.
func (o *Orchestrator) Status(ctx context.Context, scanID string) (*models.Workflow, error) {
	o.mu.RLock()
	e, ok := o.live[scanID]
	var snap *models.Workflow
	if ok {
		snap = e.wf.Snapshot()
	}
	o.mu.RUnlock()
	if ok {
		return snap, nil
	}

	w, err := o.archive.Get(ctx, scanID)
	if err != nil {
		if errors.KindOf(err) == errors.KindNotFound {
			return nil, errors.ErrScanNotFound(scanID)
		}
		return nil, err
	}
	if w == nil {
		return nil, errors.ErrScanNotFound(scanID)
	}
	return w, nil
}

// List returns every known workflow, oldest first.
func (o *Orchestrator) List(ctx context.Context) []*models.Workflow {
	o.mu.RLock()
	out := make([]*models.Workflow, 0, len(o.live))
	seen := make(map[string]bool, len(o.live))
	for id, e := range o.live {
		seen[id] = true
		out = append(out, e.wf.Snapshot())
	}
	o.mu.RUnlock()

	for _, w := range o.archive.List(ctx, constants.DefaultScanListLimit) {
		if !seen[w.ScanID] {
			out = append(out, w)
		}
	}
	sortWorkflows(out)
	return out
}

// Cancel fails a workflow with reason "cancelled". A stage already dispatched is
// left to finish; its results are discarded. A workflow waiting for its components
// leaves their queues at once.
func (o *Orchestrator) Cancel(ctx context.Context, scanID string) (*models.Workflow, error) {
	o.mu.Lock()
	e, ok := o.live[scanID]
	if !ok {
		o.mu.Unlock()
		if w, _ := o.archive.Get(ctx, scanID); w != nil {
			return nil, errors.ErrWorkflowTerminal(scanID, string(w.Stage))
		}
		return nil, errors.ErrScanNotFound(scanID)
	}
	stage := e.wf.Stage
	if err := e.wf.Fail(string(errors.KindCancelled), constants.CancelledReason, o.now()); err != nil {
		o.mu.Unlock()
		return nil, errors.ErrWorkflowTerminal(scanID, string(stage))
	}
	snap := o.retireLocked(e)
	o.mu.Unlock()

	o.logger.Info(ctx, "scan cancelled", logger.String("scan_id", scanID), logger.String("stage", string(stage)))
	o.afterRetire(ctx, snap)
	return snap, nil
}

// Wait blocks until the workflow is terminal or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, scanID string) (*models.Workflow, error) {
	o.mu.RLock()
	e, ok := o.live[scanID]
	o.mu.RUnlock()
	if !ok {
		return o.Status(ctx, scanID)
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return e.wf.Snapshot(), nil
}

// Execute submits a scan and waits for it to finish.
func (o *Orchestrator) Execute(ctx context.Context, sectorID string, componentIDs []string, priority models.Priority) (*models.Workflow, error) {
	wf, err := o.Submit(ctx, sectorID, componentIDs, priority)
	if err != nil {
		return nil, err
	}
	return o.Wait(ctx, wf.ScanID)
}

// InFlight reports how many component calls are running in a stage.
func (o *Orchestrator) InFlight(stage models.Stage) int {
	c, ok := o.inflight[stage]
	if !ok {
		return 0
	}
	return int(c.Load())
}

// Active reports the number of non-terminal workflows.
func (o *Orchestrator) Active() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.live)
}

func (o *Orchestrator) liveIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.live))
	for id := range o.live {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) resolveComponents(ctx context.Context, sectorID string, requested []string) []string {
	if ids := dedupe(requested); len(ids) > 0 {
		return ids
	}
	if o.deps.Twin != nil {
		components, err := o.deps.Twin.Components(ctx, sectorID)
		if err != nil {
			o.logger.Warn(ctx, "twin lookup failed, using generated component ids",
				logger.String("sector", sectorID), logger.Error(err))
		}
		ids := make([]string, 0, len(components))
		for _, c := range components {
			ids = append(ids, c.ComponentID)
		}
		if ids = dedupe(ids); len(ids) > 0 {
			return ids
		}
	}
	ids := make([]string, o.cfg.DefaultComponentCount)
	for i := range ids {
		ids[i] = utils.ComponentID(sectorID, i+1)
	}
	return ids
}

// retireLocked moves a terminal workflow from the registry into the archive and
// wakes waiters. Callers hold o.mu.
func (o *Orchestrator) retireLocked(e *entry) *models.Workflow {
	snap := e.wf.Snapshot()
	if e.closed {
		return snap
	}
	e.closed = true
	if !e.running {
		o.releaseLocked(e.scanID)
	}
	o.archive.Remember(snap)
	delete(o.live, e.scanID)
	close(e.done)
	return snap
}

func (o *Orchestrator) afterRetire(ctx context.Context, snap *models.Workflow) {
	o.archive.Persist(context.WithoutCancel(ctx), snap)
	result := "completed"
	if snap.Stage == models.StageFailed {
		result = "failed"
		if snap.FailureKind == string(errors.KindCancelled) {
			result = "cancelled"
		}
	}
	o.deps.Metrics.RecordWorkflowFinished(result, snap.UpdatedAt.Sub(snap.CreatedAt))
	o.deps.Metrics.SetActiveWorkflows(o.Active())
}

func (o *Orchestrator) work(pickCtx, runCtx context.Context) {
	defer o.wg.Done()
	for {
		scanID, ok := o.queue.pop(pickCtx)
		if !ok {
			return
		}
		o.run(runCtx, scanID)
	}
}

func (o *Orchestrator) traceAttrs(scanID string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("scan_id", scanID))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
