package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/canvasforge/canvasforge/backend-go/internal/editor"
	"github.com/canvasforge/canvasforge/backend-go/internal/elementpath"
	"github.com/canvasforge/canvasforge/backend-go/internal/metadata"
	"github.com/canvasforge/canvasforge/backend-go/internal/strategies"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

// Outcome is what one action did.
type Outcome struct {
	Action       string         `json:"action"`
	Patches      []editor.Patch `json:"patches"`
	Descriptions []string       `json:"descriptions"`
	Error        string         `json:"error,omitempty"`
}

// Result is the outcome of a Dispatch call.
type Result struct {
	Outcomes      []Outcome          `json:"outcomes"`
	SelectedViews []elementpath.Path `json:"selectedViews"`
	// Changed is true when at least one action altered the state.
	Changed bool `json:"changed"`
}

type Option func(*Dispatcher)

func WithUIDGenerator(g typeid.UIDGenerator) Option {
	return func(d *Dispatcher) { d.uids = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithStrategies(registry ...strategies.Strategy) Option {
	return func(d *Dispatcher) { d.controller = strategies.NewController(registry...) }
}

// Dispatcher owns an editor state and serializes every change to it.
type Dispatcher struct {
	mu         sync.Mutex
	state      *editor.State
	preview    *editor.State
	controller *strategies.Controller
	// remeasured holds metadata received while an interaction was active.
	remeasured metadata.Map
	uids       typeid.UIDGenerator
	logger     *slog.Logger

	derived    editor.DerivedCache
	derivedMu  sync.RWMutex
	navigator  *editor.DerivedState
	navSeq     uint64
	followUps  *errgroup.Group
	followUpMu sync.Mutex
	seq        uint64
}

func NewDispatcher(s *editor.State, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		state:      s,
		controller: strategies.NewController(),
		uids:       typeid.RandomUIDs{},
		logger:     slog.Default(),
		followUps:  &errgroup.Group{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scheduleFollowUps(s)
	return d
}

// State is the committed state, or the live preview while an interaction
// is active.
func (d *Dispatcher) State() *editor.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current()
}

// Committed ignores any live preview.
func (d *Dispatcher) Committed() *editor.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) current() *editor.State {
	if d.preview != nil {
		return d.preview
	}
	return d.state
}

// InteractionStatus reports the strategy session state.
func (d *Dispatcher) InteractionStatus() strategies.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controller.Status()
}

// Dispatch applies actions in order. An action that fails structurally is
// logged and dropped; the following actions still run.
func (d *Dispatcher) Dispatch(actions ...Action) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := Result{Outcomes: make([]Outcome, 0, len(actions))}
	for _, a := range actions {
		before := d.current()
		out, err := d.apply(a)
		out.Action = a.Type()
		if err != nil {
			d.logger.Warn("dropping action", "action", a.Type(), "error", err)
			out.Error = err.Error()
		}
		if d.current() != before {
			res.Changed = true
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	res.SelectedViews = d.current().SelectedViews
	if res.Changed {
		d.scheduleFollowUps(d.current())
	}
	return res
}

// FollowUpActionsFinished blocks until the derived state of every dispatch
// so far has been recomputed.
func (d *Dispatcher) FollowUpActionsFinished(ctx context.Context) error {
	d.followUpMu.Lock()
	g := d.followUps
	d.followUps = &errgroup.Group{}
	d.followUpMu.Unlock()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigator is the most recently computed derived state.
func (d *Dispatcher) Navigator() *editor.DerivedState {
	d.derivedMu.RLock()
	defer d.derivedMu.RUnlock()
	return d.navigator
}

func (d *Dispatcher) DerivedCacheStats() (hits, misses int) {
	return d.derived.Stats()
}

// scheduleFollowUps recomputes derived state in the background. Results of
// an older state never replace those of a newer one.
func (d *Dispatcher) scheduleFollowUps(s *editor.State) {
	d.followUpMu.Lock()
	defer d.followUpMu.Unlock()
	d.seq++
	seq := d.seq
	d.followUps.Go(func() error {
		derived, err := d.derived.Get(s)
		if err != nil {
			d.logger.Error("recompute navigator", "error", err)
			return fmt.Errorf("recompute navigator: %w", err)
		}
		d.derivedMu.Lock()
		if seq > d.navSeq {
			d.navigator = derived
			d.navSeq = seq
		}
		d.derivedMu.Unlock()
		return nil
	})
}

func (d *Dispatcher) apply(a Action) (Outcome, error) {
	switch a := a.(type) {
	case StartInteraction:
		d.preview = d.controller.Start(d.state, a.Point, a.Modifiers)
		return Outcome{Descriptions: []string{fmt.Sprintf("Start interaction with %s", nameOr(d.controller.ActiveStrategy()))}}, nil
	case UpdateInteraction:
		preview, err := d.controller.Update(a.Point, a.Modifiers)
		if err != nil {
			return Outcome{}, err
		}
		d.preview = preview
		return Outcome{}, nil
	case FinishInteraction:
		next, results, err := d.controller.Commit()
		d.preview = nil
		if err != nil {
			return Outcome{}, err
		}
		d.state = d.keepRemeasured(next)
		return outcome(results), nil
	case CancelInteraction:
		start, err := d.controller.Cancel()
		d.preview = nil
		if err != nil {
			return Outcome{}, err
		}
		d.state = d.keepRemeasured(start)
		return Outcome{Descriptions: []string{"Cancel interaction"}}, nil
	}

	if d.controller.Status() == strategies.Active {
		if m, ok := a.(UpdateMetadata); ok {
			return d.remeasure(m.Metadata)
		}
		return Outcome{}, ErrInteractionActive
	}
	next, results, err := reduce(d.state, a, d.uids)
	if err != nil {
		return Outcome{}, err
	}
	d.state = next
	return outcome(results), nil
}

var ErrInteractionActive = errors.New("an interaction is in progress")

// remeasure stores metadata that arrives mid-interaction on the committed
// state and the preview. The strategy keeps measuring against the snapshot
// it started from.
func (d *Dispatcher) remeasure(md metadata.Map) (Outcome, error) {
	patch := editor.Patch{Kind: editor.PatchMetadata, Metadata: md}
	next, results, err := applyPatches(d.state, "Update metadata", patch)
	if err != nil {
		return Outcome{}, err
	}
	d.state = next
	if d.preview != nil {
		preview, err := editor.ApplyPatches(d.preview, []editor.Patch{patch})
		if err != nil {
			return Outcome{}, err
		}
		d.preview = preview
	}
	d.remeasured = md
	return outcome(results), nil
}

// keepRemeasured puts the latest measurements back on a state derived
// from the interaction's start snapshot.
func (d *Dispatcher) keepRemeasured(s *editor.State) *editor.State {
	md := d.remeasured
	d.remeasured = nil
	if md == nil {
		return s
	}
	next, err := editor.ApplyPatches(s, []editor.Patch{{Kind: editor.PatchMetadata, Metadata: md}})
	if err != nil {
		d.logger.Warn("restore metadata after interaction", "error", err)
		return s
	}
	return next
}

func nameOr(s strategies.Strategy) strategies.Name {
	if s == nil {
		return "no strategy"
	}
	return s.Name()
}
