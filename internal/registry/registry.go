package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/framehub-core/internal/device"
	"github.com/nerrad567/framehub-core/internal/hub"
)

// DefaultRefreshTimeout bounds a single accessory pull.
const DefaultRefreshTimeout = 15 * time.Second

// Options configures a Registry.
type Options struct {
	// RefreshTimeout bounds one accessory pull. Zero means DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	// Classifier categorises accessories. Nil means device.Classify.
	Classifier device.Classifier
}

// op is a mutation executed on the Run goroutine.
type op struct {
	fn   func(s *state) (changed bool, err error)
	done chan opResult
}

type opResult struct {
	snap *Snapshot
	err  error
}

// Registry mirrors the hub's primary home.
//
// Run is the only writer. Every mutation (hub events, refresh results and
// confirmed writes) is applied on that goroutine in arrival order, after
// which a new immutable Snapshot is published. Readers load the current
// snapshot and never block the writer.
type Registry struct {
	hub    hub.Hub
	opts   Options
	logger Logger

	ops  chan op
	snap atomic.Pointer[Snapshot]

	refreshes singleflight.Group
	// waiters counts Refresh callers currently joined to a pull; bgActive
	// counts running background refreshes.
	waiters  atomic.Int32
	bgActive atomic.Int32

	watchMu  sync.Mutex
	watchers []chan struct{}

	// Owned by Run.
	st             state
	wasAuthorized  bool
	refreshOwed    bool
	lifetime       context.Context
	cancelLifetime context.CancelFunc
	background     sync.WaitGroup

	running atomic.Bool
	done    chan struct{}
}

// New creates a registry over h. Call Run to start mirroring.
func New(h hub.Hub, opts Options) *Registry {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.Classifier == nil {
		opts.Classifier = device.Classify
	}

	lifetime, cancel := context.WithCancel(context.Background())
	r := &Registry{
		hub:            h,
		opts:           opts,
		logger:         noopLogger{},
		ops:            make(chan op),
		lifetime:       lifetime,
		cancelLifetime: cancel,
		done:           make(chan struct{}),
	}
	r.snap.Store(r.st.snapshot(opts.Classifier))
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Run seeds the mirror from the hub and then applies hub events and
// internal operations until ctx is cancelled or the registry fails.
// It must be called exactly once.
func (r *Registry) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		r.cancelLifetime()
		close(r.done)
		r.background.Wait()
	}()

	r.seed(ctx)

	events := r.hub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-events:
			if !ok {
				r.logger.Warn("hub event stream closed")
				events = nil
				continue
			}
			if r.handleEvent(e) {
				r.publish()
			}

		case o := <-r.ops:
			changed, err := o.fn(&r.st)
			var snap *Snapshot
			if changed {
				snap = r.publish()
			} else {
				snap = r.snap.Load()
			}
			o.done <- opResult{snap: snap, err: err}
		}
	}
}

// seed reads the current authorization and homes from the hub.
// Failures are logged; later hub events fill in the gaps.
func (r *Registry) seed(ctx context.Context) {
	status, err := r.hub.AuthorizationStatus(ctx)
	if err != nil {
		r.logger.Warn("reading hub authorization", "error", err)
	} else {
		r.handleEvent(hub.AuthorizationChanged{Status: status})
	}

	homes, primary, err := r.hub.Homes(ctx)
	if err != nil {
		r.logger.Warn("reading hub homes", "error", err)
	} else {
		r.handleEvent(hub.HomesUpdated{Homes: homes, Primary: primary})
	}

	r.publish()
}

// handleEvent applies one hub event to the mirror and reports whether
// anything changed.
func (r *Registry) handleEvent(e hub.Event) bool {
	s := &r.st

	switch ev := e.(type) {
	case hub.AuthorizationChanged:
		if s.status == ev.Status {
			return false
		}
		r.logger.Info("hub authorization changed", "from", s.status, "to", ev.Status)
		s.status = ev.Status
		if ev.Status == hub.Authorized && (!r.wasAuthorized || r.refreshOwed) {
			r.wasAuthorized = true
			r.refreshInBackground("authorized")
		}
		return true

	case hub.HomesUpdated:
		previous := s.primaryID()
		s.homes = append([]hub.Home(nil), ev.Homes...)
		if ev.Primary != nil {
			p := *ev.Primary
			s.primary = &p
		} else {
			s.primary = nil
		}
		if s.primaryID() != previous {
			r.logger.Info("primary home changed", "from", previous, "to", s.primaryID())
			s.accessories = nil
			r.refreshInBackground("primary home changed")
		}
		return true

	case hub.HomeAdded:
		return s.addHome(ev.Home)

	case hub.HomeRemoved:
		changed := s.removeHome(ev.Home.ID)
		if s.primaryID() == ev.Home.ID {
			r.logger.Info("primary home removed", "home", ev.Home.ID)
			s.primary = nil
			s.accessories = nil
			changed = true
		}
		return changed

	case hub.AccessoryAdded:
		if ev.HomeID != s.primaryID() {
			return false
		}
		s.upsertAccessory(ev.Accessory)
		return true

	case hub.AccessoryRemoved:
		if ev.HomeID != s.primaryID() {
			return false
		}
		return s.removeAccessory(ev.AccessoryID)

	case hub.CharacteristicChanged:
		i := s.findAccessory(ev.AccessoryID)
		if i < 0 {
			r.logger.Debug("characteristic change for unknown accessory", "accessory", ev.AccessoryID)
			return false
		}
		return s.accessories[i].SetCharacteristic(ev.Type, ev.Value)

	default:
		r.logger.Warn("unknown hub event", "type", fmt.Sprintf("%T", e))
		return false
	}
}

// publish stores a new snapshot and notifies watchers.
func (r *Registry) publish() *Snapshot {
	r.st.version++
	snap := r.st.snapshot(r.opts.Classifier)
	r.snap.Store(snap)

	r.watchMu.Lock()
	for _, w := range r.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
	r.watchMu.Unlock()
	return snap
}

// submit runs fn on the Run goroutine and returns the snapshot published
// after it.
func (r *Registry) submit(ctx context.Context, fn func(s *state) (bool, error)) (*Snapshot, error) {
	o := op{fn: fn, done: make(chan opResult, 1)}
	select {
	case r.ops <- o:
	case <-r.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := <-o.done
	return res.snap, res.err
}

// refreshInBackground starts a refresh that is not tied to any caller.
// It is called from the Run goroutine and must not block it.
// A refresh requested while unauthorized is owed until authorization
// returns.
func (r *Registry) refreshInBackground(reason string) {
	if r.st.status != hub.Authorized {
		r.refreshOwed = true
		return
	}
	if r.st.primary == nil {
		return
	}
	r.refreshOwed = false
	homeID := r.st.primary.ID
	r.background.Add(1)
	r.bgActive.Add(1)
	go func() {
		defer r.background.Done()
		defer r.bgActive.Add(-1)
		if _, err := r.join(r.lifetime, homeID); err != nil && r.lifetime.Err() == nil {
			r.logger.Warn("background refresh failed", "reason", reason, "error", err)
		}
	}()
}

// Refresh pulls the primary home's accessories from the hub and returns the
// resulting groups.
//
// Concurrent calls share one in-flight pull and all observe its result. The
// pull itself is bounded by Options.RefreshTimeout and survives the
// cancellation of any single caller's ctx.
//
// Returns device.ErrUnauthorized before authorization and
// device.ErrNoPrimaryHome when the hub has no primary home.
func (r *Registry) Refresh(ctx context.Context) ([]device.Group, error) {
	snap := r.Snapshot()
	if snap.Authorization != hub.Authorized {
		return nil, device.ErrUnauthorized
	}
	if snap.PrimaryHome == nil {
		return nil, device.ErrNoPrimaryHome
	}
	ch := r.start(snap.PrimaryHome.ID)
	r.waiters.Add(1)
	defer r.waiters.Add(-1)
	return r.await(ctx, ch)
}

// join attaches to the in-flight pull of homeID, starting one if needed.
func (r *Registry) join(ctx context.Context, homeID string) ([]device.Group, error) {
	return r.await(ctx, r.start(homeID))
}

func (r *Registry) start(homeID string) <-chan singleflight.Result {
	return r.refreshes.DoChan(homeID, func() (any, error) {
		return r.pull(homeID)
	})
}

func (r *Registry) await(ctx context.Context, ch <-chan singleflight.Result) ([]device.Group, error) {
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]device.Group), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) pull(homeID string) ([]device.Group, error) {
	ctx, cancel := context.WithTimeout(r.lifetime, r.opts.RefreshTimeout)
	defer cancel()

	start := time.Now()
	accessories, err := r.hub.Accessories(ctx, homeID)
	if err != nil {
		return nil, fmt.Errorf("pulling accessories of home %s: %w", homeID, err)
	}

	snap, err := r.submit(ctx, func(s *state) (bool, error) {
		if s.primaryID() != homeID {
			r.logger.Debug("discarding accessories of previous primary home", "home", homeID)
			return false, nil
		}
		s.accessories = make([]hub.Accessory, len(accessories))
		for i := range accessories {
			s.accessories[i] = accessories[i].Clone()
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying accessories of home %s: %w", homeID, err)
	}

	r.logger.Debug("accessories refreshed",
		"home", homeID,
		"count", len(accessories),
		"duration", time.Since(start),
	)
	return snap.Groups, nil
}

// ApplyCharacteristics patches confirmed characteristic values of one
// accessory in a single mutation.
//
// Returns device.ErrDeviceNotFound if the accessory is not mirrored.
func (r *Registry) ApplyCharacteristics(ctx context.Context, accessoryID string, values map[hub.CharacteristicType]any) error {
	_, err := r.submit(ctx, func(s *state) (bool, error) {
		i := s.findAccessory(accessoryID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, accessoryID)
		}
		changed := false
		for t, v := range values {
			if s.accessories[i].SetCharacteristic(t, v) {
				changed = true
			}
		}
		return changed, nil
	})
	return err
}

// Watch returns a channel that receives a value whenever a new snapshot is
// published. Notifications coalesce: a slow reader sees at most one pending
// signal, not one per change.
func (r *Registry) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	r.watchMu.Lock()
	r.watchers = append(r.watchers, ch)
	r.watchMu.Unlock()
	return ch
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Groups returns the current device groups.
func (r *Registry) Groups() []device.Group {
	return r.Snapshot().Groups
}

// Authorization returns the current hub authorization status.
func (r *Registry) Authorization() hub.AuthorizationStatus {
	return r.Snapshot().Authorization
}

// HomeName returns the primary home's name, or DefaultHomeName.
func (r *Registry) HomeName() string {
	return r.Snapshot().HomeName()
}

// DeviceCount returns the number of devices in a category.
func (r *Registry) DeviceCount(category device.Category) int {
	for _, g := range r.Snapshot().Groups {
		if g.Category == category {
			return g.Count()
		}
	}
	return 0
}

// Accessory returns a copy of a mirrored accessory.
func (r *Registry) Accessory(id string) (hub.Accessory, bool) {
	return r.Snapshot().Accessory(id)
}

// Device returns the category-rich device view of an accessory.
// Returns device.ErrDeviceNotFound if the accessory is not mirrored.
func (r *Registry) Device(id string) (device.Device, error) {
	a, ok := r.Accessory(id)
	if !ok {
		return device.Device{}, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, id)
	}
	d := device.FromAccessory(a)
	d.Category = r.opts.Classifier(a)
	return d, nil
}

// Lights returns every light with its Light payload, sorted by name then ID.
func (r *Registry) Lights() []device.Device {
	snap := r.Snapshot()
	lights := []device.Device{}
	for i := range snap.Accessories {
		a := snap.Accessories[i]
		if r.opts.Classifier(a) != device.CategoryLights {
			continue
		}
		d := device.FromAccessory(a)
		d.Category = device.CategoryLights
		lights = append(lights, d)
	}
	sort.SliceStable(lights, func(i, j int) bool {
		if lights[i].Name != lights[j].Name {
			return lights[i].Name < lights[j].Name
		}
		return lights[i].ID < lights[j].ID
	})
	return lights
}

// LightsByRoom returns the lights grouped by room.
func (r *Registry) LightsByRoom() device.Rooms {
	return device.GroupByRoom(r.Lights())
}
