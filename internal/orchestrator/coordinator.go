package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/surge/internal/executor"
	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
	"github.com/ShayCichocki/surge/internal/state"
	"github.com/ShayCichocki/surge/pkg/models"
)

// Skip reasons recorded on tasks that were never dispatched.
const (
	skipDependencyFailed  = "dependency_failed"
	skipDependencySkipped = "dependency_skipped"
	skipCanceled          = "canceled"
	skipHalted            = "halted"
	skipStoreFailure      = "store_failure"
)

// ReasonCanceled is the abort reason for runs stopped by their context.
const ReasonCanceled = "canceled"

// Coordinator executes runs wave by wave.
type Coordinator struct {
	executor  executor.TaskExecutor
	store     state.Store
	policy    *policy.Config
	scaler    *ScalingCalculator
	logger    zerolog.Logger
	emitter   *EventEmitter
	telemetry *telemetry

	retryFailed bool
	now         func() time.Time
	random      func() float64
}

// NewCoordinator creates a coordinator. It panics if a required field is nil.
func NewCoordinator(cfg RequiredConfig, opts ...Option) *Coordinator {
	if cfg.Executor == nil {
		panic("orchestrator: RequiredConfig.Executor is nil")
	}
	if cfg.Store == nil {
		panic("orchestrator: RequiredConfig.Store is nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.policyConfig == nil {
		o.policyConfig = policy.Default()
	}
	o.policyConfig = o.policyConfig.Normalized()
	if o.now == nil {
		o.now = time.Now
	}

	c := &Coordinator{
		executor:    cfg.Executor,
		store:       cfg.Store,
		policy:      o.policyConfig,
		logger:      o.logger.With().Str("component", "coordinator").Logger(),
		telemetry:   newTelemetry(),
		retryFailed: o.retryFailed,
		now:         o.now,
		random:      o.random,
	}
	c.scaler = NewScalingCalculator(o.policyConfig.Scaling, o.estimator)
	c.scaler.now = o.now
	if o.eventBuffer > 0 {
		c.emitter = NewEventEmitter(o.eventBuffer, c.logger)
	}
	return c
}

// Events returns the event stream, or nil when WithEventBuffer was not set.
func (c *Coordinator) Events() <-chan Event {
	return c.emitter.Events()
}

// DroppedEvents returns the number of events dropped because the
// subscriber fell behind.
func (c *Coordinator) DroppedEvents() uint64 {
	return c.emitter.DroppedCount()
}

// Close closes the event stream.
func (c *Coordinator) Close() {
	c.emitter.Close()
}

// Planner returns the scaling calculator the coordinator uses.
func (c *Coordinator) Planner() *ScalingCalculator {
	return c.scaler
}

func (c *Coordinator) emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}
	c.emitter.Emit(e)
}

// waveOutcome is what the run loop needs to know after a wave's barrier.
type waveOutcome struct {
	band      policy.Band
	succeeded int
	failed    int
	canceled  bool
	storeErr  error
}

// Run executes every wave of run and returns its final report.
// An error is returned only when the run cannot start: invalid input,
// a resume against a different task set, or a store failure before
// execution. Task failures and aborts are reported in the FinalReport.
func (c *Coordinator) Run(ctx context.Context, run *ExecutionRun) (*models.FinalReport, error) {
	if err := run.validate(); err != nil {
		return nil, err
	}
	if s := run.Status(); s != models.RunStatusRunning {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunFinalized, run.ID, s)
	}

	start := c.now()
	storeCtx := context.WithoutCancel(ctx)
	log := c.logger.With().Str("run_id", run.ID).Logger()

	ctx, span := c.telemetry.tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.tasks", run.Graph.Size()),
		attribute.Int("run.waves", len(run.Waves)),
	))
	defer span.End()

	header := &state.Run{
		ID:            run.ID,
		Fingerprint:   run.Graph.Fingerprint(),
		Status:        models.RunStatusRunning,
		StoppedAtWave: -1,
		TaskCount:     run.Graph.Size(),
		WaveCount:     len(run.Waves),
		StartedAt:     start,
	}
	resumed, err := c.store.CreateRun(storeCtx, header)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create run %s: %w", run.ID, err)
	}

	restored := make(map[string]models.Checkpoint)
	if resumed {
		cps, err := c.store.ListCheckpoints(storeCtx, run.ID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("load checkpoints for %s: %w", run.ID, err)
		}
		for _, cp := range cps {
			if cp.Terminal() {
				restored[cp.TaskID] = cp
			}
		}
		log.Info().Int("checkpoints", len(restored)).Msg("resuming run")
	}

	pool := NewWorkerPool(c.poolSize(run))

	log.Info().
		Int("tasks", run.Graph.Size()).
		Int("waves", len(run.Waves)).
		Int("pool", pool.Size()).
		Bool("resumed", resumed).
		Msg("run started")
	c.emit(Event{
		Type:      EventRunStarted,
		RunID:     run.ID,
		WaveIndex: -1,
		Message:   fmt.Sprintf("%d tasks in %d waves", run.Graph.Size(), len(run.Waves)),
	})

	report := &models.FinalReport{
		RunID:              run.ID,
		StoppedAtWave:      -1,
		SequentialBaseline: sequentialBaseline(run.Graph),
	}

	var reason string
	for _, w := range run.Waves {
		if ctx.Err() != nil {
			reason = ReasonCanceled
			report.StoppedAtWave = w.Index
			break
		}

		wr, out := c.runWave(ctx, storeCtx, run, w, pool, restored)
		report.Waves = append(report.Waves, wr)

		if out.storeErr != nil {
			reason = fmt.Sprintf("checkpoint store: %v", out.storeErr)
		} else if out.band.Aborts() {
			reason = fmt.Sprintf("failure threshold %s: %d of %d terminal tasks failed in wave %d",
				out.band, out.failed, out.failed+out.succeeded, w.Index)
		} else if out.canceled {
			reason = ReasonCanceled
		}
		if reason != "" {
			report.StoppedAtWave = w.Index
			break
		}
	}

	status := models.RunStatusCompleted
	if reason != "" {
		status = models.RunStatusAborted
	}
	report.Status = status
	report.Reason = reason
	report.FailureSummary = summarize(report.Waves)
	report.TotalElapsed = c.now().Sub(start)

	if err := run.Finish(status); err != nil {
		log.Warn().Err(err).Msg("finalize run")
	}
	if err := c.store.FinishRun(storeCtx, run.ID, status, reason, report.StoppedAtWave, c.now()); err != nil {
		log.Error().Err(err).Msg("persist run outcome")
	}

	span.SetAttributes(attribute.String("run.status", string(status)))
	if status == models.RunStatusAborted {
		span.SetStatus(codes.Error, reason)
	}

	level := zerolog.InfoLevel
	if status == models.RunStatusAborted {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Str("status", string(status)).
		Str("reason", reason).
		Int("stopped_at_wave", report.StoppedAtWave).
		Int("succeeded", report.FailureSummary.Succeeded).
		Int("failed", report.FailureSummary.Failed).
		Int("skipped", report.FailureSummary.Skipped).
		Dur("elapsed", report.TotalElapsed).
		Msg("run finished")
	c.emit(Event{
		Type:      EventRunFinished,
		RunID:     run.ID,
		WaveIndex: report.StoppedAtWave,
		Message:   string(status),
	})

	return report, nil
}

// poolSize is the largest concurrency any wave is expected to need.
func (c *Coordinator) poolSize(run *ExecutionRun) int {
	size := 1
	for _, d := range c.scaler.Plan(run.Waves, run.Graph, run.Override) {
		if d.Concurrency > size {
			size = d.Concurrency
		}
	}
	return size
}

func (c *Coordinator) runWave(ctx, storeCtx context.Context, run *ExecutionRun, w models.Wave, pool *WorkerPool, restored map[string]models.Checkpoint) (models.WaveReport, waveOutcome) {
	log := c.logger.With().Str("run_id", run.ID).Int("wave", w.Index).Logger()
	ctx, span := c.telemetry.tracer.Start(ctx, spanWave, trace.WithAttributes(
		attribute.Int("wave.index", w.Index),
		attribute.Int("wave.tasks", len(w.TaskIDs)),
	))
	defer span.End()

	c.emit(Event{Type: EventWaveStarted, RunID: run.ID, WaveIndex: w.Index,
		Message: fmt.Sprintf("%d tasks", len(w.TaskIDs))})

	results := make(map[string]models.TaskResult, len(w.TaskIDs))
	var (
		pending          []models.TaskNode
		restoredOK       int
		restoredFailures int
	)
	for _, id := range w.TaskIDs {
		task, ok := run.Graph.Task(id)
		if !ok {
			continue
		}

		if cp, ok := restored[id]; ok && (cp.Status == models.TaskStatusSucceeded || !c.retryFailed) {
			_ = run.Graph.SetStatus(id, cp.Status)
			run.addCheckpoint(cp)
			if cp.Status == models.TaskStatusSucceeded {
				restoredOK++
			} else {
				restoredFailures++
			}
			results[id] = models.TaskResult{
				TaskID:    id,
				Status:    cp.Status,
				Attempts:  cp.Attempt,
				Result:    cp.Result,
				Error:     cp.Error,
				StartedAt: cp.StartedAt,
				EndedAt:   cp.EndedAt,
				Restored:  true,
			}
			c.emit(Event{Type: EventTaskRestored, RunID: run.ID, WaveIndex: w.Index, TaskID: id,
				Message: string(cp.Status)})
			continue
		}

		if reason := blockedReason(run.Graph, id); reason != "" {
			results[id] = c.skip(run, w.Index, id, reason)
			continue
		}
		pending = append(pending, task)
	}

	wr := models.WaveReport{Index: w.Index, TaskIDs: append([]string(nil), w.TaskIDs...)}
	out := waveOutcome{}

	// Restored outcomes count toward the wave's band, so a resumed wave
	// that had already crossed a threshold stops where it stopped before.
	tracker := newWaveTracker(c.policy.Failure, len(pending)+restoredOK+restoredFailures, 1)
	if restoredOK+restoredFailures > 0 {
		band := tracker.seed(restoredOK, restoredFailures)
		log.Info().
			Int("succeeded", restoredOK).
			Int("failed", restoredFailures).
			Str("band", band.String()).
			Msg("wave restored")
	}

	if len(pending) > 0 && tracker.currentBand() == policy.BandHalt {
		for _, t := range pending {
			results[t.ID] = c.skip(run, w.Index, t.ID, skipHalted)
		}
	} else if len(pending) > 0 {
		avg, class := c.scaler.WaveProfile(pending)
		d := c.scaler.Decide(w.Index, len(pending), avg, class, run.Override)
		run.addDecision(d)
		wr.Decision = &d
		c.telemetry.recordConcurrency(ctx, string(d.Mode), d.Concurrency)

		level := zerolog.InfoLevel
		if d.HasWarnings() {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).
			Strs("warnings", d.Rationale.Warnings).
			Int("concurrency", d.Concurrency).
			Str("mode", string(d.Mode)).
			Str("class", string(d.ResourceClass)).
			Float64("roi", d.Rationale.ROI).
			Msg("scaling decided")
		c.emit(Event{Type: EventScalingDecided, RunID: run.ID, WaveIndex: w.Index,
			Concurrency: d.Concurrency, Message: string(d.Mode)})

		if err := c.store.SaveDecision(storeCtx, run.ID, d); err != nil {
			out.storeErr = fmt.Errorf("save decision for wave %d: %w", w.Index, err)
			for _, t := range pending {
				results[t.ID] = c.skip(run, w.Index, t.ID, skipStoreFailure)
			}
		} else {
			if d.Concurrency > pool.Size() {
				if err := pool.Resize(d.Concurrency); err != nil {
					log.Warn().Err(err).Int("concurrency", d.Concurrency).Msg("resize worker pool")
				}
			}
			if tracker.setLimit(d.Concurrency) {
				c.emitThrottle(log, run.ID, w.Index, tracker)
			}
			out = c.dispatch(ctx, storeCtx, run, w.Index, pending, tracker, pool, results)
		}
	}
	out.band = tracker.currentBand()
	out.succeeded, out.failed = tracker.counts()

	wr.Results = make([]models.TaskResult, 0, len(w.TaskIDs))
	var skipped int
	for _, id := range w.TaskIDs {
		r, ok := results[id]
		if !ok {
			continue
		}
		if r.Status == models.TaskStatusSkipped {
			skipped++
		}
		wr.Results = append(wr.Results, r)
	}

	barrier := state.Barrier{
		RunID:       run.ID,
		WaveIndex:   w.Index,
		State:       models.WaveStateDone,
		Succeeded:   countStatus(wr.Results, models.TaskStatusSucceeded),
		Failed:      countStatus(wr.Results, models.TaskStatusFailed),
		Skipped:     skipped,
		CompletedAt: c.now(),
	}
	if err := c.store.RecordBarrier(storeCtx, barrier); err != nil && out.storeErr == nil {
		out.storeErr = fmt.Errorf("record barrier for wave %d: %w", w.Index, err)
	}

	span.SetAttributes(
		attribute.Int("wave.succeeded", barrier.Succeeded),
		attribute.Int("wave.failed", barrier.Failed),
		attribute.Int("wave.skipped", barrier.Skipped),
		attribute.String("wave.band", out.band.String()),
	)
	log.Info().
		Int("succeeded", barrier.Succeeded).
		Int("failed", barrier.Failed).
		Int("skipped", barrier.Skipped).
		Str("band", out.band.String()).
		Msg("wave barrier")
	c.emit(Event{Type: EventWaveBarrier, RunID: run.ID, WaveIndex: w.Index,
		Message: fmt.Sprintf("%d succeeded, %d failed, %d skipped", barrier.Succeeded, barrier.Failed, barrier.Skipped)})

	return wr, out
}

// completion is a task's terminal result delivered back to the dispatcher.
type completion struct {
	result models.TaskResult
	err    error
}

// dispatch runs tasks in input order with at most limit in flight, reading
// the limit again after each completion so a throttle applies to later
// dispatches. It returns once every dispatched task is terminal.
func (c *Coordinator) dispatch(ctx, storeCtx context.Context, run *ExecutionRun, waveIndex int, tasks []models.TaskNode, tracker *waveTracker, pool *WorkerPool, results map[string]models.TaskResult) waveOutcome {
	done := make(chan completion, len(tasks))

	var (
		out      waveOutcome
		next     int
		inFlight int
		stop     bool
		stopWhy  string
	)

	for next < len(tasks) || inFlight > 0 {
		for !stop && next < len(tasks) && inFlight < tracker.currentLimit() {
			if ctx.Err() != nil {
				stop, stopWhy, out.canceled = true, skipCanceled, true
				break
			}
			if tracker.currentBand() == policy.BandHalt {
				stop, stopWhy = true, skipHalted
				break
			}
			if err := pool.Acquire(ctx); err != nil {
				stop, stopWhy, out.canceled = true, skipCanceled, true
				break
			}

			task := tasks[next]
			next++
			inFlight++
			_ = run.Graph.SetStatus(task.ID, models.TaskStatusRunning)
			go func(task models.TaskNode) {
				res, err := c.executeTask(ctx, storeCtx, run, waveIndex, task, tracker)
				// Release before reporting so the pool is idle at the barrier.
				pool.Release()
				done <- completion{result: res, err: err}
			}(task)
		}

		if inFlight == 0 {
			break
		}

		var cmp completion
		if stop {
			cmp = <-done
		} else {
			select {
			case cmp = <-done:
			case <-ctx.Done():
				stop, stopWhy, out.canceled = true, skipCanceled, true
				continue
			}
		}
		inFlight--
		results[cmp.result.TaskID] = cmp.result
		if cmp.err != nil && out.storeErr == nil {
			out.storeErr = cmp.err
			stop, stopWhy = true, skipStoreFailure
		}
	}

	for _, task := range tasks[next:] {
		results[task.ID] = c.skip(run, waveIndex, task.ID, stopWhy)
	}
	return out
}

// executeTask runs attempts until one succeeds, the retry budget is spent,
// the wave band forbids retries, or the run is canceled. The terminal
// checkpoint is written before the outcome reaches the tracker.
func (c *Coordinator) executeTask(ctx, storeCtx context.Context, run *ExecutionRun, waveIndex int, task models.TaskNode, tracker *waveTracker) (models.TaskResult, error) {
	log := c.logger.With().Str("run_id", run.ID).Int("wave", waveIndex).Str("task", task.ID).Logger()
	timeout := c.policy.Timeout.TimeoutFor(task.EstimatedDuration.Seconds)
	started := c.now()

	// In-flight attempts finish naturally after run cancellation.
	attemptCtx := context.WithoutCancel(ctx)

	var cp models.Checkpoint
	for attempt := 1; ; attempt++ {
		c.emit(Event{Type: EventTaskStarted, RunID: run.ID, WaveIndex: waveIndex, TaskID: task.ID, Attempt: attempt})

		var stuck bool
		cp, stuck = c.attempt(attemptCtx, run.ID, waveIndex, task, attempt, timeout)
		if err := c.store.AppendAttempt(storeCtx, cp); err != nil {
			return c.storeFailure(run, task.ID, cp, fmt.Errorf("append attempt %d of %s: %w", attempt, task.ID, err))
		}
		if cp.Status == models.TaskStatusSucceeded {
			break
		}
		if stuck {
			// A retry would run alongside the call that is still alive.
			log.Warn().Int("attempt", attempt).Dur("grace", timeout).Msg("executor ignored cancellation, not retrying")
			break
		}

		if attempt > c.policy.Retry.MaxRetries || !tracker.currentBand().AllowsRetry() || ctx.Err() != nil {
			break
		}
		delay := backoff(c.policy.Retry, attempt, c.random)
		log.Debug().Int("attempt", attempt).Dur("backoff", delay).Str("error", cp.Error).Msg("retrying task")
		c.emit(Event{Type: EventTaskRetrying, RunID: run.ID, WaveIndex: waveIndex, TaskID: task.ID,
			Attempt: attempt, Message: cp.Error})
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	cp.StartedAt = started
	if err := c.store.SaveCheckpoint(storeCtx, cp); err != nil {
		return c.storeFailure(run, task.ID, cp, fmt.Errorf("save checkpoint for %s: %w", task.ID, err))
	}
	run.addCheckpoint(cp)
	_ = run.Graph.SetStatus(task.ID, cp.Status)
	c.telemetry.recordOutcome(ctx, string(cp.Status))

	band, throttled := tracker.record(cp.Status == models.TaskStatusSucceeded)
	if throttled {
		c.emitThrottle(log, run.ID, waveIndex, tracker)
	}

	if cp.Status == models.TaskStatusSucceeded {
		log.Debug().Int("attempts", cp.Attempt).Msg("task succeeded")
		c.emit(Event{Type: EventTaskSucceeded, RunID: run.ID, WaveIndex: waveIndex, TaskID: task.ID, Attempt: cp.Attempt})
	} else {
		log.Warn().Int("attempts", cp.Attempt).Str("error", cp.Error).Str("band", band.String()).Msg("task failed")
		c.emit(Event{Type: EventTaskFailed, RunID: run.ID, WaveIndex: waveIndex, TaskID: task.ID, Attempt: cp.Attempt,
			Error: errors.New(cp.Error)})
	}

	return checkpointResult(cp), nil
}

// attempt performs one executor call bounded by timeout. A call still running
// at the deadline fails the attempt, and attempt then waits up to another
// timeout for it to return so the caller's slot is never shared with a
// retry. It reports stuck when the call outlives that grace period too.
func (c *Coordinator) attempt(ctx context.Context, runID string, waveIndex int, task models.TaskNode, attempt int, timeout time.Duration) (models.Checkpoint, bool) {
	ctx, span := c.telemetry.tracer.Start(ctx, spanAttempt, trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int("task.attempt", attempt),
		attribute.String("task.class", string(task.ResourceClass)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = executor.WithAttempt(ctx, attempt)

	cp := models.Checkpoint{
		RunID:     runID,
		WaveIndex: waveIndex,
		TaskID:    task.ID,
		Attempt:   attempt,
		StartedAt: c.now(),
	}

	type outcome struct {
		res *executor.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()
		res, err := c.executor.Execute(ctx, task)
		ch <- outcome{res: res, err: err}
	}()

	var (
		out   outcome
		stuck bool
	)
	select {
	case out = <-ch:
		cp.EndedAt = c.now()
	case <-ctx.Done():
		cp.EndedAt = c.now()
		out = outcome{err: fmt.Errorf("attempt timed out after %s: %w", timeout, ctx.Err())}

		grace := time.NewTimer(timeout)
		select {
		case <-ch:
		case <-grace.C:
			stuck = true
		}
		grace.Stop()
	}

	if out.err != nil {
		cp.Status = models.TaskStatusFailed
		cp.Error = out.err.Error()
		span.RecordError(out.err)
		span.SetStatus(codes.Error, cp.Error)
	} else {
		cp.Status = models.TaskStatusSucceeded
		if out.res != nil {
			cp.Result = out.res.Output
		}
	}
	c.telemetry.recordAttempt(ctx, string(task.ResourceClass), string(cp.Status), cp.EndedAt.Sub(cp.StartedAt))
	return cp, stuck
}

func (c *Coordinator) emitThrottle(log zerolog.Logger, runID string, waveIndex int, tracker *waveTracker) {
	limit := tracker.currentLimit()
	log.Warn().Int("limit", limit).Msg("wave throttled")
	c.emit(Event{Type: EventWaveThrottled, RunID: runID, WaveIndex: waveIndex, Concurrency: limit,
		Message: tracker.currentBand().String()})
}

// storeFailure marks a task failed after its checkpoint could not be written.
func (c *Coordinator) storeFailure(run *ExecutionRun, taskID string, cp models.Checkpoint, err error) (models.TaskResult, error) {
	_ = run.Graph.SetStatus(taskID, models.TaskStatusFailed)
	cp.Status = models.TaskStatusFailed
	if cp.Error == "" {
		cp.Error = err.Error()
	}
	c.logger.Error().Err(err).Str("run_id", run.ID).Str("task", taskID).Msg("checkpoint store failure")
	return checkpointResult(cp), err
}

func (c *Coordinator) skip(run *ExecutionRun, waveIndex int, taskID, reason string) models.TaskResult {
	_ = run.Graph.SetSkipped(taskID, reason)
	c.emit(Event{Type: EventTaskSkipped, RunID: run.ID, WaveIndex: waveIndex, TaskID: taskID, Message: reason})
	return models.TaskResult{TaskID: taskID, Status: models.TaskStatusSkipped, SkipReason: reason}
}

// blockedReason returns why id cannot run, or "" when every dependency succeeded.
func blockedReason(g *graph.DependencyGraph, id string) string {
	for _, dep := range g.Dependencies(id) {
		switch g.Status(dep) {
		case models.TaskStatusSucceeded:
		case models.TaskStatusSkipped:
			return skipDependencySkipped + ":" + dep
		default:
			return skipDependencyFailed + ":" + dep
		}
	}
	return ""
}

func checkpointResult(cp models.Checkpoint) models.TaskResult {
	return models.TaskResult{
		TaskID:    cp.TaskID,
		Status:    cp.Status,
		Attempts:  cp.Attempt,
		Result:    cp.Result,
		Error:     cp.Error,
		StartedAt: cp.StartedAt,
		EndedAt:   cp.EndedAt,
	}
}

func sequentialBaseline(g *graph.DependencyGraph) time.Duration {
	var total time.Duration
	for _, t := range g.Tasks() {
		total += t.EstimatedDuration.Duration()
	}
	return total
}

func countStatus(results []models.TaskResult, status models.TaskStatus) int {
	n := 0
	for _, r := range results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func summarize(waves []models.WaveReport) models.FailureSummary {
	var s models.FailureSummary
	for _, w := range waves {
		for _, r := range w.Results {
			switch r.Status {
			case models.TaskStatusSucceeded:
				s.Succeeded++
			case models.TaskStatusFailed:
				s.Failed++
				s.Failures = append(s.Failures, models.TaskFailure{
					TaskID:    r.TaskID,
					WaveIndex: w.Index,
					Attempts:  r.Attempts,
					Error:     r.Error,
				})
			case models.TaskStatusSkipped:
				s.Skipped++
			}
		}
	}
	return s
}
