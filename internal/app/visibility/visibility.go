// Package visibility tracks which tool groups a session has enabled.
package visibility

import (
	"sync"

	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
	"clihub/internal/infra/telemetry"
)

// Catalog is the view of the registry visibility needs.
type Catalog interface {
	HasGroup(id domain.GroupID) bool
	GroupOf(procedure string) (domain.GroupID, bool)
	AllGroups() []domain.GroupID
}

// Change describes one effective mutation of the enabled set.
type Change struct {
	Group   domain.GroupID
	Enabled bool
	// Set is the enabled set right after the change.
	Set domain.VisibilitySet
}

type Options struct {
	Metrics domain.Metrics
	Logger  *zap.Logger
}

// State is the enabled-group set of one session. Readers run concurrently;
// mutations are exclusive and never observed half-applied.
type State struct {
	catalog Catalog
	metrics domain.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	enabled map[domain.GroupID]struct{}

	// notifyMu orders listener delivery with mutations.
	notifyMu  sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

// New returns a state with the initial groups enabled.
func New(cat Catalog, initial domain.VisibilitySet, opts Options) (*State, error) {
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewNoopMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &State{
		catalog:   cat,
		metrics:   opts.Metrics,
		logger:    opts.Logger.Named("visibility"),
		enabled:   make(map[domain.GroupID]struct{}, len(initial)),
		listeners: make(map[int]func(Change)),
	}
	for _, id := range initial {
		if !cat.HasGroup(id) {
			return nil, unknownGroup("apply profile", id)
		}
		s.enabled[id] = struct{}{}
	}
	s.metrics.SetVisibleGroups(len(s.enabled))
	return s, nil
}

// Enable turns a group on. It reports whether the set changed; enabling an
// enabled group is a no-op.
func (s *State) Enable(id domain.GroupID) (bool, error) {
	return s.set(id, true)
}

// Disable turns a group off. It reports whether the set changed; disabling
// a disabled group is a no-op.
func (s *State) Disable(id domain.GroupID) (bool, error) {
	return s.set(id, false)
}

func (s *State) set(id domain.GroupID, on bool) (bool, error) {
	op := "disable group"
	if on {
		op = "enable group"
	}
	if !s.catalog.HasGroup(id) {
		return false, unknownGroup(op, id)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	_, was := s.enabled[id]
	if was == on {
		s.mu.Unlock()
		return false, nil
	}
	if on {
		s.enabled[id] = struct{}{}
	} else {
		delete(s.enabled, id)
	}
	count := len(s.enabled)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.ObserveVisibilityChange(id, on)
	s.metrics.SetVisibleGroups(count)
	event := telemetry.EventGroupDisabled
	if on {
		event = telemetry.EventGroupEnabled
	}
	s.logger.Debug("visibility changed", telemetry.EventField(event), telemetry.GroupField(string(id)))

	change := Change{Group: id, Enabled: on, Set: snapshot}
	for _, fn := range s.listeners {
		fn(change)
	}
	return true, nil
}

// IsEnabled reports whether the group is on.
func (s *State) IsEnabled(id domain.GroupID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enabled[id]
	return ok
}

// IsVisible reports whether a procedure can be listed and called: its
// group is enabled or it is a meta-operation.
func (s *State) IsVisible(procedure string) bool {
	if catalog.IsMetaOperation(procedure) {
		return true
	}
	group, ok := s.catalog.GroupOf(procedure)
	if !ok {
		return false
	}
	return s.IsEnabled(group)
}

// Snapshot returns the enabled groups in catalog order.
func (s *State) Snapshot() domain.VisibilitySet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() domain.VisibilitySet {
	out := make(domain.VisibilitySet, 0, len(s.enabled))
	for _, id := range s.catalog.AllGroups() {
		if _, ok := s.enabled[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Subscribe registers fn for every effective change, delivered in mutation
// order. fn must not call Enable or Disable. The returned func unsubscribes.
func (s *State) Subscribe(fn func(Change)) func() {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

func unknownGroup(op string, id domain.GroupID) error {
	return &domain.Error{
		Code:    domain.CodeUnknownGroup,
		Op:      op,
		Message: "unknown group " + string(id),
		Meta:    map[string]string{"group": string(id)},
	}
}
