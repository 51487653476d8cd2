package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"legaldocs-backend/internal/analysis"
	"legaldocs-backend/internal/cache"
	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

// Runner executes the work a job stands for. *analysis.Processor
// satisfies it.
type Runner interface {
	Process(ctx context.Context, documentID string) (analysis.Result, error)
	Compare(ctx context.Context, firstID, secondID string) (string, error)
}

type task struct {
	jobID string
	ctx   context.Context
}

// Scheduler dispatches analysis and comparison jobs onto a bounded worker
// pool. Scheduling consults the result cache first, and concurrent
// schedules of the same work share a single execution.
type Scheduler struct {
	runner Runner
	cache  *cache.Cache

	mu         sync.Mutex
	jobs       map[string]*Job
	inflight   map[string]string // work key -> job id
	cancels    map[string]context.CancelFunc
	onComplete func(Job)
	closed     bool

	queue    chan task
	baseCtx  context.Context
	stopBase context.CancelFunc
	wg       sync.WaitGroup
	sends    sync.WaitGroup
}

// NewScheduler starts workers goroutines draining the job queue.
func NewScheduler(runner Runner, c *cache.Cache, workers int) *Scheduler {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:   runner,
		cache:    c,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]string),
		cancels:  make(map[string]context.CancelFunc),
		queue:    make(chan task, 4*workers),
		baseCtx:  ctx,
		stopBase: cancel,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Schedule accepts a job and returns it immediately. A cached result
// yields a synthetic completed job without dispatching any work, and an
// identical job already in flight is returned instead of a new one.
func (s *Scheduler) Schedule(ctx context.Context, kind string, subjectIDs []string) (Job, error) {
	if err := validate(kind, subjectIDs); err != nil {
		return Job{}, err
	}

	if payload, ok := s.cachedResult(ctx, kind, subjectIDs); ok {
		job := s.recordSynthetic(kind, subjectIDs, payload)
		return job, nil
	}

	key := workKey(kind, subjectIDs)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Job{}, ErrClosed
	}
	if existingID, ok := s.inflight[key]; ok {
		job := *s.jobs[existingID]
		s.mu.Unlock()
		return job, nil
	}

	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		SubjectIDs: append([]string(nil), subjectIDs...),
		State:      StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.jobs[job.ID] = job
	s.inflight[key] = job.ID
	s.cancels[job.ID] = cancel
	s.sends.Add(1)
	out := *job
	s.mu.Unlock()

	metrics.JobsScheduled.WithLabelValues(kind).Inc()
	s.queue <- task{jobID: out.ID, ctx: runCtx}
	s.sends.Done()
	return out, nil
}

// OnComplete registers fn to be called with a copy of every dispatched
// job that reaches a terminal state. Synthetic cache-hit jobs finish
// before Schedule returns and are not reported.
func (s *Scheduler) OnComplete(fn func(Job)) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// Status returns the job by id.
func (s *Scheduler) Status(jobID string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// Cancel requests cancellation of a pending or running job. It is
// advisory: a worker mid-call finishes its current step before noticing.
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.State.Terminal() {
		return nil
	}
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	return nil
}

// Close stops accepting jobs, cancels in-flight work, and waits for the
// workers to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.stopBase()
	s.sends.Wait()
	close(s.queue)
	s.wg.Wait()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for t := range s.queue {
		s.run(t)
	}
}

func (s *Scheduler) run(t task) {
	s.mu.Lock()
	job, ok := s.jobs[t.jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if t.ctx.Err() != nil {
		s.finishLocked(job, StateCancelled, nil, "")
		done := *job
		fn := s.onComplete
		s.mu.Unlock()
		metrics.JobsCancelled.Inc()
		if fn != nil {
			fn(done)
		}
		return
	}
	job.State = StateRunning
	job.UpdatedAt = time.Now().UTC()
	kind := job.Kind
	subjects := append([]string(nil), job.SubjectIDs...)
	s.mu.Unlock()

	payload, err := s.execute(t.ctx, kind, subjects)

	s.mu.Lock()
	switch {
	case err == nil:
		s.finishLocked(job, StateSucceeded, payload, "")
		metrics.JobsSucceeded.WithLabelValues(kind).Inc()
	case errors.Is(err, context.Canceled) || t.ctx.Err() != nil:
		s.finishLocked(job, StateCancelled, nil, "")
		metrics.JobsCancelled.Inc()
	default:
		s.finishLocked(job, StateFailed, nil, err.Error())
		metrics.JobsFailed.WithLabelValues(kind).Inc()
		telemetry.Error("job failed", map[string]any{
			"job_id": job.ID,
			"kind":   kind,
			"error":  err.Error(),
		})
	}
	done := *job
	fn := s.onComplete
	s.mu.Unlock()

	if fn != nil {
		fn(done)
	}
}

func (s *Scheduler) execute(ctx context.Context, kind string, subjects []string) (json.RawMessage, error) {
	switch kind {
	case KindAnalysis:
		res, err := s.runner.Process(ctx, subjects[0])
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	case KindComparison:
		out, err := s.runner.Compare(ctx, subjects[0], subjects[1])
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidRequest, kind)
	}
}

func (s *Scheduler) finishLocked(job *Job, state State, payload json.RawMessage, errDetail string) {
	job.State = state
	job.Result = payload
	job.Error = errDetail
	job.UpdatedAt = time.Now().UTC()
	delete(s.inflight, workKey(job.Kind, job.SubjectIDs))
	delete(s.cancels, job.ID)
}

// cachedResult looks up the finished payload for the work a job would do.
func (s *Scheduler) cachedResult(ctx context.Context, kind string, subjects []string) (json.RawMessage, bool) {
	switch kind {
	case KindAnalysis:
		if payload, ok := s.cache.Get(ctx, cache.CategoryAnalysis, subjects...); ok {
			return payload, true
		}
	case KindComparison:
		if payload, ok := s.cache.Get(ctx, cache.CategoryComparison, subjects...); ok {
			out, err := json.Marshal(string(payload))
			if err == nil {
				return out, true
			}
		}
	}
	return nil, false
}

func (s *Scheduler) recordSynthetic(kind string, subjects []string, payload json.RawMessage) Job {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		SubjectIDs: append([]string(nil), subjects...),
		State:      StateSucceeded,
		Result:     payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

func validate(kind string, subjects []string) error {
	want := 0
	switch kind {
	case KindAnalysis:
		want = 1
	case KindComparison:
		want = 2
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidRequest, kind)
	}
	if len(subjects) != want {
		return fmt.Errorf("%w: kind %q takes %d subject(s), got %d", ErrInvalidRequest, kind, want, len(subjects))
	}
	for _, id := range subjects {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty subject id", ErrInvalidRequest)
		}
	}
	return nil
}

func workKey(kind string, subjects []string) string {
	return kind + ":" + strings.Join(subjects, ":")
}
