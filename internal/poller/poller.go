package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/sources"
)

type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Observer receives every applied outcome.
type Observer interface {
	ObservePoll(source model.SourceID, status model.SummaryStatus, elapsed time.Duration)
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
	Observer Observer
	Logger   zerolog.Logger
}

type task struct {
	source  sources.Source
	ctx     context.Context
	cancel  context.CancelFunc
	busy    atomic.Bool
	started time.Time
}

// Poller keeps one summary per active source. Summaries are only written
// here; readers get copies.
type Poller struct {
	fetcher  Fetcher
	registry *sources.Registry
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	observer Observer
	log      zerolog.Logger

	mu        sync.Mutex
	tasks     map[model.SourceID]*task
	order     []model.SourceID
	summaries map[model.SourceID]model.Summary

	inflight sync.WaitGroup
	kick     chan struct{}
}

func New(fetcher Fetcher, registry *sources.Registry, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Timeout <= 0 || opts.Timeout >= opts.Interval {
		opts.Timeout = opts.Interval / 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		fetcher:   fetcher,
		registry:  registry,
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		now:       opts.Now,
		observer:  opts.Observer,
		log:       opts.Logger,
		tasks:     make(map[model.SourceID]*task),
		summaries: make(map[model.SourceID]model.Summary),
		kick:      make(chan struct{}, 1),
	}
}

// Activate makes ids the active set. Sources leaving the set are cancelled
// and their summaries dropped; sources already active keep running and
// keep their summaries; new sources are polled on the next dispatch, which
// Run triggers right away.
func (p *Poller) Activate(ids []model.SourceID) {
	wanted := make(map[model.SourceID]bool, len(ids))
	order := make([]model.SourceID, 0, len(ids))
	for _, id := range ids {
		if wanted[id] {
			continue
		}
		if _, ok := p.registry.Get(id); !ok {
			p.log.Warn().Str("source", string(id)).Msg("unknown source ignored")
			continue
		}
		wanted[id] = true
		order = append(order, id)
	}

	p.mu.Lock()
	for id, t := range p.tasks {
		if !wanted[id] {
			t.cancel()
			delete(p.tasks, id)
			delete(p.summaries, id)
		}
	}
	added := 0
	for _, id := range order {
		if _, ok := p.tasks[id]; ok {
			continue
		}
		source, _ := p.registry.Get(id)
		ctx, cancel := context.WithCancel(context.Background())
		p.tasks[id] = &task{source: source, ctx: ctx, cancel: cancel}
		added++
	}
	p.order = order
	p.mu.Unlock()

	if added > 0 {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

func (p *Poller) Deactivate() {
	p.Activate(nil)
}

// Active returns the active source ids in activation order.
func (p *Poller) Active() []model.SourceID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SourceID, len(p.order))
	copy(out, p.order)
	return out
}

// Summaries returns the summaries of active sources that have an outcome,
// in activation order.
func (p *Poller) Summaries() []model.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Summary, 0, len(p.order))
	for _, id := range p.order {
		if summary, ok := p.summaries[id]; ok {
			out = append(out, summary)
		}
	}
	return out
}

func (p *Poller) Summary(id model.SourceID) (model.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	summary, ok := p.summaries[id]
	return summary, ok
}

// Tick runs one poll cycle over every due source and waits for the polls it
// started. Sources still busy from an earlier cycle are skipped.
func (p *Poller) Tick(ctx context.Context) {
	started := p.dispatch(false)
	done := make(chan struct{})
	go func() {
		started.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Run dispatches a cycle every interval until ctx ends. Newly activated
// sources are dispatched without waiting for the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.dispatch(false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.dispatch(false)
		case <-p.kick:
			p.dispatch(true)
		}
	}
}

// Close cancels every source and waits for in-flight polls to return.
func (p *Poller) Close() {
	p.Deactivate()
	p.inflight.Wait()
}

func (p *Poller) due(t *task, now time.Time, onlyNew bool) bool {
	if t.started.IsZero() {
		return true
	}
	if onlyNew {
		return false
	}
	if t.source.Interval <= 0 {
		return true
	}
	// ticks can land slightly early relative to the last start
	return now.Sub(t.started)+p.interval/2 >= t.source.Interval
}

func (p *Poller) dispatch(onlyNew bool) *sync.WaitGroup {
	var started sync.WaitGroup
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.order {
		t := p.tasks[id]
		if !p.due(t, now, onlyNew) {
			continue
		}
		if !t.busy.CompareAndSwap(false, true) {
			p.log.Debug().Str("source", string(id)).Msg("poll skipped, previous request still running")
			continue
		}
		t.started = now
		started.Add(1)
		p.inflight.Add(1)
		go func(t *task) {
			defer p.inflight.Done()
			defer started.Done()
			defer t.busy.Store(false)
			p.poll(t)
		}(t)
	}
	return &started
}

func (p *Poller) poll(t *task) {
	ctx, cancel := context.WithTimeout(t.ctx, p.timeout)
	defer cancel()

	begin := time.Now()
	value, err := p.fetch(ctx, t.source)
	elapsed := time.Since(begin)

	summary, applied := p.apply(t, value, err)
	if !applied {
		p.log.Debug().Str("source", string(t.source.ID)).Msg("discarding result of cancelled poll")
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Str("source", string(t.source.ID)).Str("status", string(summary.Status)).
			Int("failures", summary.Failures).Msg("poll failed")
	}
	if p.observer != nil {
		p.observer.ObservePoll(t.source.ID, summary.Status, elapsed)
	}
}

func (p *Poller) fetch(ctx context.Context, source sources.Source) (value any, err error) {
	raw, err := p.fetcher.Fetch(ctx, source.Endpoint)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: transform %s panicked: %v", backend.ErrMalformed, source.ID, r)
		}
	}()
	return source.Transform(raw)
}

func (p *Poller) apply(t *task, value any, err error) (model.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := t.source.ID
	if current, ok := p.tasks[id]; !ok || current != t || t.ctx.Err() != nil {
		return model.Summary{}, false
	}

	now := p.now()
	if err == nil {
		freshAt := now
		summary := model.Summary{Source: id, Status: model.StatusFresh, Value: value, FreshAt: &freshAt, CheckedAt: now}
		p.summaries[id] = summary
		return summary, true
	}

	previous, seen := p.summaries[id]
	summary := model.Summary{Source: id, Status: model.StatusUnavailable, CheckedAt: now, Error: err.Error(), Failures: 1}
	if seen {
		summary.Failures = previous.Failures + 1
		if previous.FreshAt != nil {
			summary.Status = model.StatusStale
			summary.Value = previous.Value
			summary.FreshAt = previous.FreshAt
		}
	}
	p.summaries[id] = summary
	return summary, true
}
