package navigation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Jasani8259/Final-Capstone/internal/model"
	"github.com/Jasani8259/Final-Capstone/internal/session"
)

// Activator is the part of the poller the router drives.
type Activator interface {
	Activate(ids []model.SourceID)
	Deactivate()
}

type State struct {
	Status string     `json:"status"`
	Role   model.Role `json:"role,omitempty"`
}

func (s State) String() string {
	if s.Role == "" {
		return s.Status
	}
	return fmt.Sprintf("%s(%s)", s.Status, s.Role)
}

type Options struct {
	Logger zerolog.Logger
	// Observer, when set, sees every resolution the router applies.
	Observer func(Resolution)
}

// Router tracks the active view of one client session and keeps the poller
// on that view's sources.
type Router struct {
	views    *Registry
	store    *session.Store
	poller   Activator
	log      zerolog.Logger
	observer func(Resolution)

	mu      sync.Mutex
	current Resolution

	unsubscribe func()
}

// NewRouter starts on the view matching the store's identity and follows
// every later identity change.
func NewRouter(views *Registry, store *session.Store, poller Activator, opts Options) *Router {
	r := &Router{
		views:    views,
		store:    store,
		poller:   poller,
		log:      opts.Logger,
		observer: opts.Observer,
	}
	if identity, ok := store.Get(); ok {
		r.OnSessionChanged(&identity)
	} else {
		r.OnSessionChanged(nil)
	}
	r.unsubscribe = store.Subscribe(r.OnSessionChanged)
	return r
}

// Navigate resolves path for the current identity and makes the result the
// active view. Denied and unknown views leave nothing polling.
func (r *Router) Navigate(path string) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apply(Resolve(r.views, path, r.identity()))
}

// OnSessionChanged is the session store listener. A cleared session returns
// to the login view. A new identity keeps the current view when it may see
// it, otherwise it lands on the identity's home view.
func (r *Router) OnSessionChanged(identity *model.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.poller.Deactivate()
	if identity == nil {
		r.apply(Resolve(r.views, LoginPath, nil))
		return
	}

	if r.current.Requested != "" {
		again := Resolve(r.views, r.current.Requested, identity)
		if again.Outcome == OutcomeResolved && again.View.Kind != KindLogin {
			r.apply(again)
			return
		}
	}
	r.apply(Resolve(r.views, r.views.HomePath(identity.Role), identity))
}

func (r *Router) Current() Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) State() State {
	identity, ok := r.store.Get()
	if !ok {
		return State{Status: "unauthenticated"}
	}
	return State{Status: "authenticated", Role: identity.Role}
}

// Detach stops following the session store.
func (r *Router) Detach() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

func (r *Router) identity() *model.Identity {
	identity, ok := r.store.Get()
	if !ok {
		return nil
	}
	return &identity
}

func (r *Router) apply(res Resolution) Resolution {
	r.current = res
	if res.Outcome == OutcomeResolved {
		r.poller.Activate(res.View.Sources)
	} else {
		r.poller.Activate(nil)
	}
	r.log.Debug().Str("path", res.Requested).Str("outcome", string(res.Outcome)).Msg("navigation")
	if r.observer != nil {
		r.observer(res)
	}
	return res
}
