package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
	"github.com/Jasani8259/Final-Capstone/internal/poller"
	"github.com/Jasani8259/Final-Capstone/internal/session"
	"github.com/Jasani8259/Final-Capstone/internal/sources"
)

// Client is one browser session: its own identity store, router and poller.
type Client struct {
	ID     string
	Store  *session.Store
	Router *navigation.Router
	Poller *poller.Poller

	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Client) Identity() (model.Identity, bool) {
	return c.Store.Get()
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Client) stop() {
	c.Router.Detach()
	c.cancel()
	c.Poller.Close()
}

type Options struct {
	Views          *navigation.Registry
	Sources        *sources.Registry
	Fetcher        poller.Fetcher
	PollInterval   time.Duration
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	// Cache is optional; nil keeps sessions in memory only.
	Cache      IdentityCache
	Observer   poller.Observer
	OnNavigate func(navigation.Resolution)
	OnSessions func(active int)
	Logger     zerolog.Logger
	Now        func() time.Time
}

type Manager struct {
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	clients map[string]*Client

	rehydrate singleflight.Group
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	return &Manager{opts: opts, log: opts.Logger, clients: make(map[string]*Client)}
}

// New starts an anonymous client on the login view.
func (m *Manager) New() *Client {
	return m.start(uuid.NewString())
}

func (m *Manager) start(id string) *Client {
	store := session.NewStore()
	p := poller.New(m.opts.Fetcher, m.opts.Sources, poller.Options{
		Interval: m.opts.PollInterval,
		Timeout:  m.opts.RequestTimeout,
		Observer: m.opts.Observer,
		Logger:   m.log.With().Str("session", id).Logger(),
	})
	router := navigation.NewRouter(m.opts.Views, store, p, navigation.Options{
		Logger:   m.log.With().Str("session", id).Logger(),
		Observer: m.opts.OnNavigate,
	})

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{ID: id, Store: store, Router: router, Poller: p, cancel: cancel, lastSeen: m.opts.Now()}
	go p.Run(ctx)

	m.mu.Lock()
	m.clients[id] = client
	count := len(m.clients)
	m.mu.Unlock()
	m.reportSessions(count)
	return client
}

// Get returns the client for id, rehydrating it from the cache when this
// process has not seen it.
func (m *Manager) Get(ctx context.Context, id string) (*Client, bool, error) {
	m.mu.Lock()
	client, ok := m.clients[id]
	m.mu.Unlock()
	if ok {
		client.touch(m.opts.Now())
		return client, true, nil
	}
	if m.opts.Cache == nil || id == "" {
		return nil, false, nil
	}

	// concurrent requests for one id share a single rehydrated client
	value, err, _ := m.rehydrate.Do(id, func() (interface{}, error) {
		m.mu.Lock()
		existing, ok := m.clients[id]
		m.mu.Unlock()
		if ok {
			return existing, nil
		}

		snapshot, found, err := m.opts.Cache.Load(ctx, id)
		if err != nil || !found {
			return nil, err
		}
		client := m.start(id)
		client.Store.Set(snapshot.Identity)
		if snapshot.Path != "" {
			client.Router.Navigate(snapshot.Path)
		}
		m.log.Info().Str("session", id).Str("role", string(snapshot.Identity.Role)).Msg("session rehydrated")
		return client, nil
	})
	if err != nil {
		return nil, false, err
	}
	client, ok = value.(*Client)
	if !ok || client == nil {
		return nil, false, nil
	}
	client.touch(m.opts.Now())
	return client, true, nil
}

// Login binds identity to the client. The router moves to the identity's
// home view, or stays where it is when the new identity may see it.
func (m *Manager) Login(ctx context.Context, client *Client, identity model.Identity) navigation.Resolution {
	client.touch(m.opts.Now())
	client.Store.Set(identity)
	res := client.Router.Current()
	m.save(ctx, client, res)
	return res
}

func (m *Manager) Navigate(ctx context.Context, client *Client, path string) navigation.Resolution {
	client.touch(m.opts.Now())
	res := client.Router.Navigate(path)
	if res.Outcome == navigation.OutcomeResolved {
		m.save(ctx, client, res)
	}
	return res
}

// Logout clears the identity and forgets the client.
func (m *Manager) Logout(ctx context.Context, client *Client) navigation.Resolution {
	client.Store.Clear()
	res := client.Router.Current()
	m.forget(client)
	m.drop(ctx, client.ID)
	return res
}

// Reap expires clients idle for longer than the session TTL.
func (m *Manager) Reap(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	var expired []*Client
	for _, client := range m.clients {
		if now.Sub(client.idleSince()) > m.opts.SessionTTL {
			expired = append(expired, client)
		}
	}
	m.mu.Unlock()

	for _, client := range expired {
		client.Store.Clear()
		m.forget(client)
		m.drop(ctx, client.ID)
		m.log.Info().Str("session", client.ID).Msg("session expired")
	}
	return len(expired)
}

func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				if n := m.Reap(runCtx, m.opts.Now()); n > 0 {
					m.log.Debug().Int("expired", n).Msg("session reaper run")
				}
				cancel()
			}
		}
	}()
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close stops every client without touching cached snapshots, so sessions
// can resume after a restart.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.stop()
	}
	m.reportSessions(0)
}

func (m *Manager) forget(client *Client) {
	m.mu.Lock()
	if current, ok := m.clients[client.ID]; ok && current == client {
		delete(m.clients, client.ID)
	}
	count := len(m.clients)
	m.mu.Unlock()
	client.stop()
	m.reportSessions(count)
}

func (m *Manager) save(ctx context.Context, client *Client, res navigation.Resolution) {
	if m.opts.Cache == nil {
		return
	}
	identity, ok := client.Identity()
	if !ok {
		return
	}
	if err := m.opts.Cache.Save(ctx, client.ID, Snapshot{Identity: identity, Path: res.Requested}); err != nil {
		m.log.Warn().Err(err).Str("session", client.ID).Msg("session snapshot not saved")
	}
}

func (m *Manager) drop(ctx context.Context, id string) {
	if m.opts.Cache == nil {
		return
	}
	if err := m.opts.Cache.Delete(ctx, id); err != nil {
		m.log.Warn().Err(err).Str("session", id).Msg("session snapshot not deleted")
	}
}

func (m *Manager) reportSessions(count int) {
	if m.opts.OnSessions != nil {
		m.opts.OnSessions(count)
	}
}
