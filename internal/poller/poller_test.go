package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/sources"
)

type respondFunc func(ctx context.Context, endpoint string, call int) (json.RawMessage, error)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	respond respondFunc
}

func newFakeFetcher(respond respondFunc) *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), respond: respond}
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls[endpoint]++
	call := f.calls[endpoint]
	f.mu.Unlock()
	return f.respond(ctx, endpoint, call)
}

func (f *fakeFetcher) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[model.SummaryStatus]int
}

func (o *countingObserver) ObservePoll(_ model.SourceID, status model.SummaryStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[model.SummaryStatus]int)
	}
	o.outcomes[status]++
}

func newTestPoller(fetcher Fetcher, opts Options) *Poller {
	if opts.Interval == 0 {
		opts.Interval = time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 50 * time.Millisecond
	}
	return New(fetcher, sources.NewRegistry(sources.DefaultOptions()), opts)
}

func records(n int) json.RawMessage {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id":%d}`, i)
	}
	return json.RawMessage(out + "]")
}

func TestFreshAfterSuccessfulTick(t *testing.T) {
	fetcher := newFakeFetcher(func(context.Context, string, int) (json.RawMessage, error) {
		return records(7), nil
	})
	p := newTestPoller(fetcher, Options{})
	p.Activate([]model.SourceID{sources.ActivePatients})
	_, ok := p.Summary(sources.ActivePatients)
	assert.False(t, ok, "no summary before the first outcome")

	p.Tick(context.Background())

	summary, ok := p.Summary(sources.ActivePatients)
	require.True(t, ok)
	assert.Equal(t, model.StatusFresh, summary.Status)
	assert.Equal(t, model.Count{Value: 7, Display: "7"}, summary.Value)
	require.NotNil(t, summary.FreshAt)
	assert.Equal(t, 0, summary.Failures)
}

func TestStaleKeepsLastGoodValueThroughTimeouts(t *testing.T) {
	fetcher := newFakeFetcher(func(ctx context.Context, _ string, call int) (json.RawMessage, error) {
		if call == 1 {
			return records(3), nil
		}
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, ctx.Err())
	})
	p := newTestPoller(fetcher, Options{Timeout: 20 * time.Millisecond})
	p.Activate([]model.SourceID{sources.ActivePatients})

	p.Tick(context.Background())
	first, _ := p.Summary(sources.ActivePatients)
	require.Equal(t, model.StatusFresh, first.Status)

	p.Tick(context.Background())
	p.Tick(context.Background())

	summary, ok := p.Summary(sources.ActivePatients)
	require.True(t, ok)
	assert.Equal(t, model.StatusStale, summary.Status)
	assert.Equal(t, 3, summary.Value.(model.Count).Value)
	assert.Equal(t, *first.FreshAt, *summary.FreshAt)
	assert.Equal(t, 2, summary.Failures)
	assert.NotEmpty(t, summary.Error)
}

func TestUnavailableWithoutPriorValue(t *testing.T) {
	fetcher := newFakeFetcher(func(_ context.Context, _ string, call int) (json.RawMessage, error) {
		if call <= 2 {
			return nil, backend.ErrUnavailable
		}
		return records(4), nil
	})
	p := newTestPoller(fetcher, Options{})
	p.Activate([]model.SourceID{sources.AppointmentsToday})

	p.Tick(context.Background())
	p.Tick(context.Background())
	summary, _ := p.Summary(sources.AppointmentsToday)
	assert.Equal(t, model.StatusUnavailable, summary.Status)
	assert.Nil(t, summary.Value)
	assert.Nil(t, summary.FreshAt)
	assert.Equal(t, 2, summary.Failures)

	p.Tick(context.Background())
	summary, _ = p.Summary(sources.AppointmentsToday)
	assert.Equal(t, model.StatusFresh, summary.Status)
	assert.Equal(t, model.Capacity{Count: 4, Remaining: 26, Capacity: 30}, summary.Value)
	assert.Equal(t, 0, summary.Failures)
}

func TestMalformedPayloadBecomesStale(t *testing.T) {
	fetcher := newFakeFetcher(func(_ context.Context, _ string, call int) (json.RawMessage, error) {
		if call == 1 {
			return records(2), nil
		}
		return json.RawMessage(`{"unexpected":true}`), nil
	})
	p := newTestPoller(fetcher, Options{})
	p.Activate([]model.SourceID{sources.ActivePatients})
	p.Tick(context.Background())
	p.Tick(context.Background())

	summary, _ := p.Summary(sources.ActivePatients)
	assert.Equal(t, model.StatusStale, summary.Status)
	assert.Equal(t, 2, summary.Value.(model.Count).Value)
}

func TestTransformPanicIsMalformed(t *testing.T) {
	registry := sources.NewRegistry(sources.DefaultOptions())
	require.NoError(t, registry.Register(sources.Source{
		ID:       "exploding",
		Endpoint: "/exploding",
		Transform: func(json.RawMessage) (any, error) {
			panic("boom")
		},
	}))
	fetcher := newFakeFetcher(func(context.Context, string, int) (json.RawMessage, error) {
		return records(1), nil
	})
	p := New(fetcher, registry, Options{Interval: time.Second, Timeout: 50 * time.Millisecond})
	p.Activate([]model.SourceID{"exploding"})
	p.Tick(context.Background())

	summary, ok := p.Summary("exploding")
	require.True(t, ok)
	assert.Equal(t, model.StatusUnavailable, summary.Status)
	assert.Contains(t, summary.Error, "panicked")
}

func TestSkipIfBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	fetcher := newFakeFetcher(func(context.Context, string, int) (json.RawMessage, error) {
		entered <- struct{}{}
		<-release
		return records(1), nil
	})
	p := newTestPoller(fetcher, Options{Timeout: 500 * time.Millisecond})
	p.Activate([]model.SourceID{sources.ActivePatients})

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	<-entered

	p.Tick(context.Background())
	assert.Equal(t, 1, fetcher.Calls("/active_patients"))

	close(release)
	<-done
	summary, _ := p.Summary(sources.ActivePatients)
	assert.Equal(t, model.StatusFresh, summary.Status)
}

func TestLateResultOfReplacedTaskIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	fetcher := newFakeFetcher(func(_ context.Context, _ string, call int) (json.RawMessage, error) {
		entered <- struct{}{}
		if call == 1 {
			<-release
		}
		return records(call), nil
	})
	p := newTestPoller(fetcher, Options{Timeout: 500 * time.Millisecond})
	p.Activate([]model.SourceID{sources.ActivePatients})

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	<-entered

	// switch away and back while the first request is still outstanding
	p.Deactivate()
	p.Activate([]model.SourceID{sources.ActivePatients})
	close(release)
	<-done

	_, ok := p.Summary(sources.ActivePatients)
	assert.False(t, ok, "late result must not be applied")

	p.Tick(context.Background())
	summary, ok := p.Summary(sources.ActivePatients)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Value.(model.Count).Value)
}

func TestCancelledRequestIsDiscarded(t *testing.T) {
	entered := make(chan struct{}, 1)
	fetcher := newFakeFetcher(func(ctx context.Context, _ string, _ int) (json.RawMessage, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, errors.Join(backend.ErrUnavailable, ctx.Err())
	})
	p := newTestPoller(fetcher, Options{Timeout: 500 * time.Millisecond})
	p.Activate([]model.SourceID{sources.RiskScores})

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	<-entered
	p.Activate([]model.SourceID{sources.ActivePatients})
	<-done

	_, ok := p.Summary(sources.RiskScores)
	assert.False(t, ok)
	assert.Equal(t, []model.SourceID{sources.ActivePatients}, p.Active())
}

func TestActivateKeepsSharedSources(t *testing.T) {
	fetcher := newFakeFetcher(func(context.Context, string, int) (json.RawMessage, error) {
		return records(2), nil
	})
	p := newTestPoller(fetcher, Options{})
	p.Activate([]model.SourceID{sources.ActivePatients, sources.ActivePatients})
	p.Tick(context.Background())
	require.Len(t, p.Summaries(), 1)

	p.Activate([]model.SourceID{sources.ActivePatients})
	_, ok := p.Summary(sources.ActivePatients)
	assert.True(t, ok, "re-activating the same set keeps summaries")

	p.Activate([]model.SourceID{sources.AgeDemographics, sources.ActivePatients})
	_, ok = p.Summary(sources.ActivePatients)
	assert.True(t, ok, "shared source keeps its summary")
	assert.Equal(t, []model.SourceID{sources.AgeDemographics, sources.ActivePatients}, p.Active())

	p.Activate([]model.SourceID{"unknown"})
	assert.Empty(t, p.Active())
	assert.Empty(t, p.Summaries())
}

func TestSummariesFollowActivationOrder(t *testing.T) {
	fetcher := newFakeFetcher(func(_ context.Context, endpoint string, _ int) (json.RawMessage, error) {
		switch endpoint {
		case "/age_demographics":
			return json.RawMessage(`[{"age_group":"0-17","count":1}]`), nil
		default:
			return records(1), nil
		}
	})
	p := newTestPoller(fetcher, Options{})
	p.Activate([]model.SourceID{sources.AgeDemographics, sources.LabReportCount, sources.ActivePatients})
	p.Tick(context.Background())

	summaries := p.Summaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, sources.AgeDemographics, summaries[0].Source)
	assert.Equal(t, sources.LabReportCount, summaries[1].Source)
	assert.Equal(t, sources.ActivePatients, summaries[2].Source)
}

func TestObserverSeesOutcomes(t *testing.T) {
	fetcher := newFakeFetcher(func(_ context.Context, _ string, call int) (json.RawMessage, error) {
		if call == 2 {
			return nil, backend.ErrUnavailable
		}
		return records(1), nil
	})
	observer := &countingObserver{}
	p := newTestPoller(fetcher, Options{Observer: observer})
	p.Activate([]model.SourceID{sources.ActivePatients})
	p.Tick(context.Background())
	p.Tick(context.Background())

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Equal(t, 1, observer.outcomes[model.StatusFresh])
	assert.Equal(t, 1, observer.outcomes[model.StatusStale])
}

func TestRunPollsNewSourcesImmediately(t *testing.T) {
	fetcher := newFakeFetcher(func(context.Context, string, int) (json.RawMessage, error) {
		return records(5), nil
	})
	p := newTestPoller(fetcher, Options{Interval: time.Hour, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Activate([]model.SourceID{sources.ActivePatients})
	require.Eventually(t, func() bool {
		summary, ok := p.Summary(sources.ActivePatients)
		return ok && summary.Status == model.StatusFresh
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	p.Close()
}
