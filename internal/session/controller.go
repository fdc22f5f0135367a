// Package session orchestrates a comparator session: selection edits, the
// authentication and quota gates, the asynchronous analysis and the view
// state shown to the user.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/catalog"
	"github.com/sells-group/sportcar/internal/compare"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
	"github.com/sells-group/sportcar/internal/selection"
)

var (
	// ErrAuthRequired is returned when an unauthenticated identity asks for
	// a comparison.
	ErrAuthRequired = eris.New("session: authentication required")
	// ErrSelectionTooSmall is returned when fewer than two vehicles are
	// selected. The request is ignored.
	ErrSelectionTooSmall = eris.New("session: select at least two vehicles")
	// ErrInvalidIntent is returned when an intent is not accepted in the
	// current view state.
	ErrInvalidIntent = eris.New("session: intent not valid in current state")
)

// DefaultAnalysisDelay is the simulated backend latency of a comparison.
const DefaultAnalysisDelay = 2 * time.Second

// Comparer runs a comparison over a selection snapshot.
type Comparer interface {
	Compare(ctx context.Context, vehicles []model.Vehicle) (*model.Result, error)
}

// View is the presentation snapshot of a session.
type View struct {
	State         model.ViewState `json:"state"`
	Selection     []model.Vehicle `json:"selection"`
	Result        *model.Result   `json:"result,omitempty"`
	Usage         model.Usage     `json:"usage"`
	UserName      string          `json:"user_name"`
	Authenticated bool            `json:"authenticated"`
	CanCompare    bool            `json:"can_compare"`
}

// History records comparisons that reached the results view.
type History interface {
	SaveComparison(ctx context.Context, subject string, res *model.Result) (*model.ComparisonRecord, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithAnalysisDelay sets the fixed latency of the analysis phase.
func WithAnalysisDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.latency = func(context.Context) {
			if d > 0 {
				time.Sleep(d)
			}
		}
	}
}

// WithLatency replaces the analysis latency with fn, which blocks until the
// backend would answer.
func WithLatency(fn func(ctx context.Context)) Option {
	return func(c *Controller) { c.latency = fn }
}

// WithHistory records every analysed comparison in h.
func WithHistory(h History) Option {
	return func(c *Controller) { c.history = h }
}

// WithQuotaLimit overrides quota.DefaultLimit.
func WithQuotaLimit(n int) Option {
	return func(c *Controller) { c.limit = n }
}

// Controller is one user's comparator session. Its methods are safe to call
// from several goroutines; the analysis completes on its own goroutine.
type Controller struct {
	catalog catalog.Catalog
	engine  Comparer
	store   quota.Store
	history History
	limit   int
	latency func(ctx context.Context)

	mu        sync.Mutex
	identity  Identity
	quota     *quota.Quota
	sel       *selection.Set
	state     model.ViewState
	result    *model.Result
	inflight  chan struct{}
	listeners map[int]Listener
	nextLID   int

	// dispatchMu keeps events from concurrent intents in emission order.
	dispatchMu sync.Mutex
}

// New creates a session in the Selecting state and loads the identity's
// quota from store.
func New(ctx context.Context, cat catalog.Catalog, engine Comparer, store quota.Store, id Identity, opts ...Option) (*Controller, error) {
	if engine == nil {
		return nil, eris.New("session: nil comparer")
	}
	if id == nil {
		return nil, eris.New("session: nil identity")
	}
	c := &Controller{
		catalog:   cat,
		engine:    engine,
		store:     store,
		limit:     quota.DefaultLimit,
		sel:       selection.New(),
		state:     model.StateSelecting,
		identity:  id,
		listeners: make(map[int]Listener),
	}
	WithAnalysisDelay(DefaultAnalysisDelay)(c)
	for _, opt := range opts {
		opt(c)
	}

	q, err := quota.New(ctx, store, id.Subject(), c.limit)
	if err != nil {
		return nil, eris.Wrap(err, "session: load quota")
	}
	c.quota = q
	return c, nil
}

// Subscribe registers l and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextLID
	c.nextLID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// unlockAndDispatch releases mu and delivers events in order.
func (c *Controller) unlockAndDispatch(events []Event) {
	if len(events) == 0 {
		c.mu.Unlock()
		return
	}
	ls := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextLID; i++ {
		if l, ok := c.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	c.dispatchMu.Lock()
	c.mu.Unlock()
	defer c.dispatchMu.Unlock()
	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}

// View returns the current presentation snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		State:         c.state,
		Selection:     c.sel.Items(),
		Result:        c.result.Clone(),
		Usage:         c.quota.Usage(),
		UserName:      c.identity.DisplayName(),
		Authenticated: c.identity.IsAuthenticated(),
		CanCompare:    c.state == model.StateSelecting && c.sel.CanCompare(),
	}
}

// State returns the current view state.
func (c *Controller) State() model.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) selectionEvent() Event {
	return Event{Kind: EventSelectionChanged, State: c.state, Selection: c.sel.Items()}
}

// transition moves to s and appends a ViewStateChanged event when the state
// actually changes.
func (c *Controller) transition(s model.ViewState, events []Event) []Event {
	if c.state == s {
		return events
	}
	c.state = s
	usage := c.quota.Usage()
	return append(events, Event{Kind: EventViewStateChanged, State: s, Usage: &usage})
}

func (c *Controller) acceptsEdits() bool {
	return c.state == model.StateSelecting || c.state == model.StateAnalyzing
}

// Select adds v to the selection. Duplicates and additions beyond capacity
// are ignored and reported as false.
func (c *Controller) Select(v model.Vehicle) (bool, error) {
	c.mu.Lock()
	if !c.acceptsEdits() {
		state := c.state
		c.mu.Unlock()
		return false, eris.Wrapf(ErrInvalidIntent, "select in %s", state)
	}
	var events []Event
	added := c.sel.Add(v)
	if added {
		events = append(events, c.selectionEvent())
	}
	c.unlockAndDispatch(events)
	return added, nil
}

// SelectPath resolves brand/model/version in the catalog and selects it.
// A catalog miss is returned without touching the session.
func (c *Controller) SelectPath(brand, mdl, version string) (bool, error) {
	if c.catalog == nil {
		return false, eris.New("session: no catalog configured")
	}
	v, err := c.catalog.Resolve(brand, mdl, version)
	if err != nil {
		return false, err
	}
	return c.Select(v)
}

// SelectByID looks up a catalog id and selects it.
func (c *Controller) SelectByID(id string) (bool, error) {
	if c.catalog == nil {
		return false, eris.New("session: no catalog configured")
	}
	v, err := c.catalog.Lookup(id)
	if err != nil {
		return false, err
	}
	return c.Select(v)
}

// Deselect removes a vehicle. While results are shown the vehicle is also
// stripped from the result; remaining scores are kept and nothing is
// recomputed, even when fewer than two vehicles remain.
func (c *Controller) Deselect(id string) (bool, error) {
	c.mu.Lock()
	if !c.acceptsEdits() && c.state != model.StateShowingResults {
		state := c.state
		c.mu.Unlock()
		return false, eris.Wrapf(ErrInvalidIntent, "deselect in %s", state)
	}
	var events []Event
	removed := c.sel.Remove(id)
	if removed {
		events = append(events, c.selectionEvent())
	}
	if c.state == model.StateShowingResults && c.result != nil {
		before := len(c.result.Ranking)
		c.result = compare.Without(c.result, id)
		if len(c.result.Ranking) != before {
			removed = true
			events = append(events, Event{Kind: EventComparisonReady, State: c.state, Result: c.result.Clone()})
		}
	}
	c.unlockAndDispatch(events)
	return removed, nil
}

// RequestCompare runs the gated comparison. On success the session enters
// Analyzing and the returned state is StateAnalyzing; the result arrives
// asynchronously. Use Wait to block until it does.
func (c *Controller) RequestCompare(ctx context.Context) (model.ViewState, error) {
	c.mu.Lock()
	if c.state != model.StateSelecting {
		state := c.state
		c.mu.Unlock()
		return state, eris.Wrapf(ErrInvalidIntent, "compare in %s", state)
	}
	if !c.sel.CanCompare() {
		c.mu.Unlock()
		return model.StateSelecting, ErrSelectionTooSmall
	}

	var events []Event
	if !c.identity.IsAuthenticated() {
		events = append(events, Event{Kind: EventAuthRequired, State: c.state})
		c.unlockAndDispatch(events)
		return model.StateSelecting, ErrAuthRequired
	}

	if !c.quota.HasQuota() {
		usage := c.quota.Usage()
		subject := c.quota.Subject()
		events = append(events, Event{Kind: EventQuotaExceeded, State: c.state, Usage: &usage})
		events = c.transition(model.StateUpgradeRequired, events)
		c.unlockAndDispatch(events)
		zap.L().Info("session: quota exhausted",
			zap.String("subject", subject),
			zap.Int("limit", usage.Limit),
		)
		return model.StateUpgradeRequired, quota.ErrQuotaExceeded
	}

	snapshot := c.sel.Items()
	done := make(chan struct{})
	c.inflight = done
	events = c.transition(model.StateAnalyzing, events)
	c.unlockAndDispatch(events)

	go c.analyze(context.WithoutCancel(ctx), snapshot, done)
	return model.StateAnalyzing, nil
}

// analyze completes a comparison exactly once. The result is only shown
// after a successful quota consumption.
func (c *Controller) analyze(ctx context.Context, snapshot []model.Vehicle, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.inflight == done {
			c.inflight = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	c.latency(ctx)
	res, cmpErr := c.engine.Compare(ctx, snapshot)

	if cmpErr != nil {
		zap.L().Error("session: comparison failed", zap.Error(cmpErr))
		c.mu.Lock()
		events := []Event{{Kind: EventError, State: c.state, Error: cmpErr.Error()}}
		events = c.transition(model.StateSelecting, events)
		c.unlockAndDispatch(events)
		return
	}

	// The identity and its quota are fixed while Analyzing.
	c.mu.Lock()
	q := c.quota
	c.mu.Unlock()
	consumeErr := q.Consume(ctx)

	c.mu.Lock()
	var events []Event
	if err := consumeErr; err != nil {
		usage := c.quota.Usage()
		if errors.Is(err, quota.ErrQuotaExceeded) {
			events = append(events, Event{Kind: EventQuotaExceeded, State: c.state, Usage: &usage})
			events = c.transition(model.StateUpgradeRequired, events)
		} else {
			zap.L().Error("session: consume quota", zap.Error(err))
			events = append(events, Event{Kind: EventError, State: c.state, Error: err.Error()})
			events = c.transition(model.StateSelecting, events)
		}
		c.unlockAndDispatch(events)
		return
	}

	c.result = res
	events = append(events, Event{Kind: EventComparisonReady, State: model.StateShowingResults, Result: res.Clone()})
	events = c.transition(model.StateShowingResults, events)
	usage := c.quota.Usage()
	subject := c.quota.Subject()
	c.unlockAndDispatch(events)

	if c.history != nil {
		if _, err := c.history.SaveComparison(ctx, subject, res.Clone()); err != nil {
			zap.L().Warn("session: record comparison", zap.String("subject", subject), zap.Error(err))
		}
	}

	zap.L().Info("session: comparison ready",
		zap.Int("vehicles", len(res.Vehicles)),
		zap.Int("usage", usage.Count),
		zap.Int("limit", usage.Limit),
	)
}

// Wait blocks until the in-flight analysis, if any, has completed and its
// events have been delivered.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.inflight
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "session: wait for analysis")
	}
}

// ShowPopular is the promotional fast path: the selection becomes the
// curated pair and results are shown at once. It skips the
// authentication gate, the quota and the analysis latency.
func (c *Controller) ShowPopular(ctx context.Context, popularID string) (*model.Result, error) {
	if c.catalog == nil {
		return nil, eris.New("session: no catalog configured")
	}
	if state := c.State(); state != model.StateSelecting {
		return nil, eris.Wrapf(ErrInvalidIntent, "popular in %s", state)
	}
	pop, err := c.catalog.PopularByID(popularID)
	if err != nil {
		return nil, err
	}
	res, err := c.engine.Compare(ctx, pop.Vehicles)
	if err != nil {
		return nil, eris.Wrapf(err, "session: popular %s", popularID)
	}
	res.Source = model.SourcePopular

	c.mu.Lock()
	if c.state != model.StateSelecting {
		state := c.state
		c.mu.Unlock()
		return nil, eris.Wrapf(ErrInvalidIntent, "popular in %s", state)
	}
	c.sel.Replace(pop.Vehicles)
	c.result = res
	events := []Event{
		c.selectionEvent(),
		{Kind: EventComparisonReady, State: model.StateShowingResults, Result: res.Clone()},
	}
	events = c.transition(model.StateShowingResults, events)
	c.unlockAndDispatch(events)

	zap.L().Info("session: popular comparison shown", zap.String("popular", popularID))
	return res.Clone(), nil
}

// Dismiss closes the upgrade prompt.
func (c *Controller) Dismiss() error {
	c.mu.Lock()
	if c.state != model.StateUpgradeRequired {
		state := c.state
		c.mu.Unlock()
		return eris.Wrapf(ErrInvalidIntent, "dismiss in %s", state)
	}
	events := c.transition(model.StateSelecting, nil)
	c.unlockAndDispatch(events)
	return nil
}

// NewComparison leaves the results and returns to Selecting. The selection
// is kept so the user can adjust it and run again.
func (c *Controller) NewComparison() error {
	c.mu.Lock()
	if c.state != model.StateShowingResults {
		state := c.state
		c.mu.Unlock()
		return eris.Wrapf(ErrInvalidIntent, "new comparison in %s", state)
	}
	c.result = nil
	events := c.transition(model.StateSelecting, nil)
	c.unlockAndDispatch(events)
	return nil
}

// Reset clears the selection and any result.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state != model.StateSelecting && c.state != model.StateShowingResults {
		state := c.state
		c.mu.Unlock()
		return eris.Wrapf(ErrInvalidIntent, "reset in %s", state)
	}
	var events []Event
	if c.sel.Len() > 0 {
		c.sel.Clear()
		events = append(events, Event{Kind: EventSelectionChanged, State: model.StateSelecting, Selection: []model.Vehicle{}})
	}
	c.result = nil
	events = c.transition(model.StateSelecting, events)
	c.unlockAndDispatch(events)
	return nil
}

// SetIdentity rebinds the session to id, e.g. after a login while the
// comparator is open, and reloads the quota for its subject.
func (c *Controller) SetIdentity(ctx context.Context, id Identity) error {
	if id == nil {
		return eris.New("session: nil identity")
	}
	if c.State() == model.StateAnalyzing {
		return eris.Wrap(ErrInvalidIntent, "identity change while analyzing")
	}
	q, err := quota.New(ctx, c.store, id.Subject(), c.limit)
	if err != nil {
		return eris.Wrap(err, "session: load quota")
	}

	c.mu.Lock()
	if c.state == model.StateAnalyzing {
		c.mu.Unlock()
		return eris.Wrap(ErrInvalidIntent, "identity change while analyzing")
	}
	c.identity = id
	c.quota = q
	usage := q.Usage()
	events := []Event{{Kind: EventViewStateChanged, State: c.state, Usage: &usage}}
	c.unlockAndDispatch(events)
	return nil
}
