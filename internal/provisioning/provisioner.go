package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/opsprov/internal/agent"
	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/provider"
	"github.com/imamik/opsprov/internal/state"
	"github.com/imamik/opsprov/internal/util/async"
	"github.com/imamik/opsprov/internal/util/redact"
	"github.com/imamik/opsprov/internal/util/retry"
)

// StateStore is the serialized accessor to persisted records.
type StateStore interface {
	Get(key string) (state.Record, bool)
	Put(key string, r state.Record) error
}

// Options configures a Provisioner.
type Options struct {
	// MaxWorkers bounds how many instances are provisioned at once.
	MaxWorkers int
	// MaxRetries is how many times a failed task is retried. A task runs
	// at most MaxRetries+1 times.
	MaxRetries int
	// Force re-runs instances that already have a SUCCESS record.
	Force bool

	// Policy supplies the backoff delays. MaxRetries overrides its
	// MaxRetries. Defaults to retry.DefaultPolicy.
	Policy *retry.Policy
	// Catalog resolves agent rules to commands. Defaults to the built-in
	// catalog.
	Catalog *agent.Catalog
	// LogDir receives one log file per task. Empty disables task logs.
	LogDir string

	Observer Observer
	Metrics  *Metrics
	Redactor *redact.Redactor
	Now      func() time.Time
}

// Provisioner schedules a batch of specs onto a bounded worker pool.
type Provisioner struct {
	store    StateStore
	provider provider.Provider
	opts     Options
	policy   retry.Policy
	observer Observer
	now      func() time.Time

	errMu    sync.Mutex
	storeErr []error
}

// New creates a Provisioner executing through prov and recording outcomes
// in store.
func New(store StateStore, prov provider.Provider, opts Options) (*Provisioner, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if prov == nil {
		return nil, errors.New("provider is required")
	}
	if opts.MaxWorkers < 1 {
		return nil, fmt.Errorf("max workers must be at least 1, got %d", opts.MaxWorkers)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", opts.MaxRetries)
	}

	policy := retry.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	policy.MaxRetries = opts.MaxRetries

	if opts.Catalog == nil {
		opts.Catalog = agent.NewCatalog(agent.DefaultBaseURL, nil)
	}
	if opts.Observer == nil {
		opts.Observer = NewLogObserver(logr.Discard())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Provisioner{
		store:    store,
		provider: prov,
		opts:     opts,
		policy:   policy,
		observer: opts.Observer.WithFields(map[string]string{"provider": prov.Name()}),
		now:      opts.Now,
	}, nil
}

// Run provisions every spec of batch and records every invalid row. It
// returns once every scheduled task has reached a terminal status.
//
// Individual failures never stop the run. Run returns an error only when
// ctx is cancelled, in which case tasks that had not finished are left
// without a record, or when records could not be persisted. The Summary is
// returned in both cases.
func (p *Provisioner) Run(ctx context.Context, batch fleet.Batch) (*Summary, error) {
	runID := uuid.NewString()
	started := p.now()
	p.errMu.Lock()
	p.storeErr = nil
	p.errMu.Unlock()

	obs := p.observer.WithFields(map[string]string{"run_id": runID})
	results := newCollector(batch.Total())

	obs.Event(Event{
		Type:    EventRunStarted,
		Message: "starting run",
		Fields: map[string]string{
			"rows":    strconv.Itoa(batch.Total()),
			"invalid": strconv.Itoa(len(batch.Invalid)),
			"workers": strconv.Itoa(p.opts.MaxWorkers),
			"force":   strconv.FormatBool(p.opts.Force),
		},
	})

	record := func(r Result) {
		p.opts.Metrics.recordOutcome(r.Outcome)
		obs.Progress(results.add(r), batch.Total())
	}

	for _, rowErr := range batch.Invalid {
		p.recordInvalid(obs, runID, rowErr.Key(), rowErr.RowNumber(), rowErr, record)
	}

	var tasks []*Task
	logNames := uniqueLogNames(batch.Specs)
	for i, spec := range batch.Specs {
		key := spec.Instance.String()
		if !p.opts.Force {
			if rec, ok := p.store.Get(key); ok && rec.Succeeded() {
				obs.Event(Event{Type: EventTaskSkipped, Instance: key, Message: "already provisioned"})
				record(Result{Key: key, Row: spec.Row, Outcome: OutcomeSkipped})
				continue
			}
		}

		steps, err := p.opts.Catalog.Plan(spec)
		if err != nil {
			p.recordInvalid(obs, runID, key, spec.Row, err, record)
			continue
		}
		t := NewTask(spec, steps)
		t.LogName = logNames[i]
		tasks = append(tasks, t)
	}

	err := async.RunWorkers(ctx, p.opts.MaxWorkers, tasks, func(ctx context.Context, t *Task) error {
		r, err := p.runTask(ctx, obs, runID, t)
		if err != nil {
			return err
		}
		record(r)
		return nil
	})

	finished := p.now()
	summary := results.summary(runID, started, finished.Sub(started))
	p.opts.Metrics.recordRunCompleted(finished)
	obs.Event(Event{
		Type:    EventRunCompleted,
		Message: "run completed",
		Err:     err,
		Fields: map[string]string{
			"success":            strconv.Itoa(summary.Success),
			"failure":            strconv.Itoa(summary.Failure),
			"validation_failure": strconv.Itoa(summary.ValidationFailure),
			"skipped":            strconv.Itoa(summary.Skipped),
			"duration":           summary.Duration.Round(time.Millisecond).String(),
		},
	})

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return summary, errors.Join(append([]error{err}, p.storeErr...)...)
}

func (p *Provisioner) recordInvalid(obs Observer, runID, key string, row int, cause error, record func(Result)) {
	msg := p.opts.Redactor.String(cause.Error())
	p.put(obs, key, state.Record{
		Status:    state.StatusValidationFailure,
		LastError: msg,
		RunID:     runID,
	})
	obs.Event(Event{
		Type:     EventValidationFailed,
		Instance: key,
		Message:  "invalid row",
		Err:      cause,
		Fields:   map[string]string{"row": strconv.Itoa(row)},
	})
	record(Result{Key: key, Row: row, Outcome: OutcomeValidationFailure, Error: msg})
}

// runTask drives t to a terminal status. It returns an error only when ctx
// is cancelled before that.
func (p *Provisioner) runTask(ctx context.Context, obs Observer, runID string, t *Task) (Result, error) {
	started := p.now()
	log, err := openTaskLog(p.opts.LogDir, t.LogName, p.opts.Redactor, p.now)
	if err != nil {
		obs.Printf("task log for %s unavailable: %v", t.Key, err)
		log, _ = openTaskLog("", t.LogName, p.opts.Redactor, p.now)
	}
	defer func() { _ = log.Close() }()

	log.header(t)
	obs.Event(Event{Type: EventTaskStarted, Instance: t.Key, Message: "provisioning instance"})

	for {
		if err := t.Start(); err != nil {
			return Result{}, err
		}
		p.opts.Metrics.recordAttempt()

		err := p.attempt(ctx, obs, t, log)
		if err == nil {
			if err := t.Succeed(); err != nil {
				return Result{}, err
			}
			break
		}

		if ctx.Err() != nil {
			log.abandon(t, ctx.Err())
			return Result{}, ctx.Err()
		}

		delay, again := p.policy.Next(err, t.Attempts())
		if !again {
			if err := t.Fail(err); err != nil {
				return Result{}, err
			}
			break
		}

		if err := t.ScheduleRetry(err); err != nil {
			return Result{}, err
		}
		p.opts.Metrics.recordRetry()
		log.retry(t.Attempts(), delay)
		obs.Event(Event{
			Type:     EventTaskRetry,
			Instance: t.Key,
			Attempt:  t.Attempts(),
			Message:  "attempt failed, retrying",
			Err:      err,
			Fields:   map[string]string{"delay": delay.Round(time.Millisecond).String()},
		})

		if err := retry.Sleep(ctx, delay); err != nil {
			log.abandon(t, err)
			return Result{}, err
		}
	}

	log.finish(t)
	p.opts.Metrics.recordTask(p.now().Sub(started))

	rec := state.Record{
		Status:   state.StatusSuccess,
		Attempts: t.Attempts(),
		Agents:   agentNames(t.Spec),
		RunID:    runID,
	}
	res := Result{
		Key:      t.Key,
		Row:      t.Spec.Row,
		Outcome:  OutcomeSuccess,
		Attempts: t.Attempts(),
		LogPath:  log.Path(),
	}
	for _, at := range t.Spec.AgentTypes() {
		res.Agents = append(res.Agents, AgentOutcome{Type: at, Running: t.Verified(at)})
	}

	if t.Status() == TaskFailure {
		rec.Status = state.StatusFailure
		rec.LastError = p.opts.Redactor.String(t.LastError().Error())
		res.Outcome = OutcomeFailure
		res.Error = rec.LastError
		obs.Event(Event{
			Type:     EventTaskFailed,
			Instance: t.Key,
			Attempt:  t.Attempts(),
			Message:  "provisioning failed",
			Err:      t.LastError(),
			Fields:   map[string]string{"class": provider.ClassOf(t.LastError()).String()},
		})
	} else {
		obs.Event(Event{
			Type:     EventTaskSucceeded,
			Instance: t.Key,
			Attempt:  t.Attempts(),
			Message:  "provisioning succeeded",
		})
	}

	p.put(obs, t.Key, rec)
	return res, nil
}

// attempt runs the task's remaining steps in order and stops at the first
// failure.
func (p *Provisioner) attempt(ctx context.Context, obs Observer, t *Task, log *taskLog) error {
	for _, step := range t.Remaining() {
		started := p.now()
		res, err := p.provider.Execute(ctx, t.Spec.Instance, step.Command)
		if err == nil && res.ExitCode != 0 {
			err = provider.Classify(p.provider.Name(), t.Spec.Instance, res, nil)
		}
		p.opts.Metrics.recordCommand(step.Kind, err, p.now().Sub(started))
		log.step(t.Attempts(), step, res, err)
		obs.Event(Event{
			Type:     EventStepFinished,
			Instance: t.Key,
			Attempt:  t.Attempts(),
			Message:  "step finished",
			Err:      err,
			Fields: map[string]string{
				"step":    step.Name(),
				"command": p.opts.Redactor.String(step.Command),
				"exit":    strconv.Itoa(res.ExitCode),
			},
		})

		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
		if err := t.Complete(step); err != nil {
			return retry.Fatal(err)
		}
	}
	return nil
}

func (p *Provisioner) put(obs Observer, key string, rec state.Record) {
	if err := p.store.Put(key, rec); err != nil {
		obs.Printf("failed to record %s for %s: %v", rec.Status, key, err)
		p.errMu.Lock()
		p.storeErr = append(p.storeErr, fmt.Errorf("failed to record %s: %w", key, err))
		p.errMu.Unlock()
	}
}

func agentNames(spec fleet.Spec) []string {
	names := make([]string, 0, len(spec.Rules))
	for _, r := range spec.Rules {
		names = append(names, r.String())
	}
	return names
}

// uniqueLogNames returns a log file name per spec. Instances listed more
// than once get a -row<N> suffix so that no two tasks share a file.
func uniqueLogNames(specs []fleet.Spec) []string {
	counts := make(map[string]int, len(specs))
	for _, s := range specs {
		counts[s.Instance.Filename()]++
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Instance.Filename()
		if counts[names[i]] > 1 {
			names[i] += "-row" + strconv.Itoa(s.Row)
		}
	}
	return names
}
