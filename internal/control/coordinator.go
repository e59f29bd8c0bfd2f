package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/framehub-core/internal/device"
	"github.com/nerrad567/framehub-core/internal/hub"
)

// Defaults for Options.
const (
	DefaultWriteTimeout      = 10 * time.Second
	DefaultMaxParallelWrites = 8
)

// Mirror is the read side of the registry plus its confirmed-write entry
// point. *registry.Registry implements it.
type Mirror interface {
	Authorization() hub.AuthorizationStatus
	Accessory(id string) (hub.Accessory, bool)
	Lights() []device.Device
	ApplyCharacteristics(ctx context.Context, accessoryID string, values map[hub.CharacteristicType]any) error
}

// Options configures a Coordinator.
type Options struct {
	// WriteTimeout bounds each hub write. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration

	// MaxParallelWrites bounds the fan-out of AllOn and AllOff.
	MaxParallelWrites int

	// ResyncAfterPartialFailure re-reads a device from the hub in the
	// background after a partial composite failure.
	ResyncAfterPartialFailure bool
}

// Outcome is the result of one device in a bulk command.
type Outcome struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Err      error  `json:"-"`
}

// resyncable lists the characteristics re-read by Resync.
var resyncable = []hub.CharacteristicType{
	hub.CharPowerState,
	hub.CharBrightness,
	hub.CharHue,
	hub.CharSaturation,
	hub.CharColorTemperature,
	hub.CharTargetTemperature,
	hub.CharTargetHeatingCooling,
	hub.CharLockTargetState,
}

// Coordinator turns user intents into hub writes and, on confirmation,
// into registry updates.
//
// Validation happens before any hub call. Commands on the same device run
// one at a time in arrival order. Local state changes only after the hub
// confirms; a failed command leaves it untouched.
type Coordinator struct {
	hub       hub.Hub
	mirror    Mirror
	opts      Options
	logger    Logger
	recorders []Recorder
	locks     *deviceLocks

	errMu   sync.Mutex
	lastErr error

	lifetime   context.Context
	cancel     context.CancelFunc
	bgMu       sync.Mutex
	closed     bool
	background sync.WaitGroup
}

// New creates a coordinator writing to h and applying confirmed values to m.
func New(h hub.Hub, m Mirror, opts Options) *Coordinator {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.MaxParallelWrites <= 0 {
		opts.MaxParallelWrites = DefaultMaxParallelWrites
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		hub:      h,
		mirror:   m,
		opts:     opts,
		logger:   noopLogger{},
		locks:    newDeviceLocks(),
		lifetime: lifetime,
		cancel:   cancel,
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// AddRecorder registers a recorder for command outcomes. Not safe to call
// concurrently with commands.
func (c *Coordinator) AddRecorder(r Recorder) {
	c.recorders = append(c.recorders, r)
}

// Close stops background resyncs and waits for them to finish. It is safe
// to call more than once.
func (c *Coordinator) Close() {
	c.bgMu.Lock()
	c.closed = true
	c.bgMu.Unlock()

	c.cancel()
	c.background.Wait()
}

// LastError returns the most recent command failure, or nil.
func (c *Coordinator) LastError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

func (c *Coordinator) setLastError(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

// ClearError clears the error slot.
func (c *Coordinator) ClearError() {
	c.errMu.Lock()
	c.lastErr = nil
	c.errMu.Unlock()
}

// Toggle flips a device's power state.
func (c *Coordinator) Toggle(ctx context.Context, id string) error {
	rec := c.begin(id, CommandToggle)

	err := c.withDevice(ctx, id, func(a hub.Accessory) error {
		ch, ok := a.Characteristic(hub.CharPowerState)
		if !ok {
			return fmt.Errorf("%w: %s has no power state", device.ErrCharacteristicUnsupported, id)
		}
		current, _ := hub.BoolValue(ch.Value)
		target := !current
		rec.Values = map[hub.CharacteristicType]any{hub.CharPowerState: target}

		if err := c.write(ctx, id, hub.CharPowerState, target); err != nil {
			return err
		}
		c.apply(ctx, id, rec.Values)
		return nil
	})
	return c.finish(ctx, rec, err)
}

// SetBrightness sets a light's brightness in percent (0-100).
func (c *Coordinator) SetBrightness(ctx context.Context, id string, value int) error {
	rec := c.begin(id, CommandSetBrightness)
	rec.Values = map[hub.CharacteristicType]any{hub.CharBrightness: value}

	if err := device.ValidateBrightness(value); err != nil {
		return c.finish(ctx, rec, err)
	}

	err := c.withDevice(ctx, id, func(a hub.Accessory) error {
		if _, ok := a.Characteristic(hub.CharBrightness); !ok {
			return fmt.Errorf("%w: %s has no brightness", device.ErrCharacteristicUnsupported, id)
		}
		if err := c.write(ctx, id, hub.CharBrightness, value); err != nil {
			return err
		}
		c.apply(ctx, id, rec.Values)
		return nil
	})
	return c.finish(ctx, rec, err)
}

// SetColor sets a light's hue (0-360 degrees) and saturation (0-100 percent).
//
// Both writes are issued concurrently. The command succeeds only if both
// are confirmed, in which case both values are applied locally in one
// update. Otherwise it returns a *CompositeError and neither value changes
// locally, even if the hub accepted one of them.
func (c *Coordinator) SetColor(ctx context.Context, id string, hue, saturation int) error {
	rec := c.begin(id, CommandSetColor)
	rec.Values = map[hub.CharacteristicType]any{
		hub.CharHue:        hue,
		hub.CharSaturation: saturation,
	}

	if err := device.ValidateColor(hue, saturation); err != nil {
		return c.finish(ctx, rec, err)
	}

	err := c.withDevice(ctx, id, func(a hub.Accessory) error {
		l, ok := device.LightFrom(a)
		if !ok || !l.SupportsColor() {
			return fmt.Errorf("%w: %s does not support color", device.ErrCharacteristicUnsupported, id)
		}

		p := newPendingWrite(2)
		go func() { p.complete(c.write(ctx, id, hub.CharHue, hue)) }()
		go func() { p.complete(c.write(ctx, id, hub.CharSaturation, saturation)) }()

		if failures := p.wait(); len(failures) > 0 {
			if c.opts.ResyncAfterPartialFailure {
				c.resyncInBackground(id)
			}
			return &CompositeError{DeviceID: id, Failures: failures}
		}
		c.apply(ctx, id, rec.Values)
		return nil
	})
	return c.finish(ctx, rec, err)
}

// AllOn turns on every light that is currently off. It fails with
// device.ErrUnauthorized, and writes nothing, while the hub is not
// authorized.
func (c *Coordinator) AllOn(ctx context.Context) ([]Outcome, error) {
	return c.setAll(ctx, true)
}

// AllOff turns off every light that is currently on. See AllOn.
func (c *Coordinator) AllOff(ctx context.Context) ([]Outcome, error) {
	return c.setAll(ctx, false)
}

// setAll writes power to every light not already in the target state.
// Each light is an independent command: a failure is reported in that
// light's Outcome and does not stop the others.
func (c *Coordinator) setAll(ctx context.Context, on bool) ([]Outcome, error) {
	if c.mirror.Authorization() != hub.Authorized {
		c.setLastError(device.ErrUnauthorized)
		c.logger.Warn("bulk power command rejected", "on", on, "error", device.ErrUnauthorized)
		return nil, device.ErrUnauthorized
	}

	var targets []device.Device
	for _, d := range c.mirror.Lights() {
		if l, ok := d.State.(device.Light); ok && l.Power != on {
			targets = append(targets, d)
		}
	}

	outcomes := make([]Outcome, len(targets))
	var g errgroup.Group
	g.SetLimit(c.opts.MaxParallelWrites)
	for i, d := range targets {
		g.Go(func() error {
			outcomes[i] = Outcome{DeviceID: d.ID, Name: d.Name, Err: c.setPower(ctx, d.ID, on)}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	c.logger.Info("bulk power command finished", "on", on, "devices", len(outcomes), "failed", failed)
	return outcomes, nil
}

func (c *Coordinator) setPower(ctx context.Context, id string, on bool) error {
	rec := c.begin(id, CommandSetPower)
	rec.Values = map[hub.CharacteristicType]any{hub.CharPowerState: on}

	err := c.withDevice(ctx, id, func(a hub.Accessory) error {
		ch, ok := a.Characteristic(hub.CharPowerState)
		if !ok {
			return fmt.Errorf("%w: %s has no power state", device.ErrCharacteristicUnsupported, id)
		}
		// An earlier queued command may already have reached the target.
		if current, _ := hub.BoolValue(ch.Value); current == on {
			return nil
		}
		if err := c.write(ctx, id, hub.CharPowerState, on); err != nil {
			return err
		}
		c.apply(ctx, id, rec.Values)
		return nil
	})
	return c.finish(ctx, rec, err)
}

// Resync re-reads a device's writable characteristics from the hub and
// applies them locally as hub truth. Characteristics that fail to read are
// reported together; the rest are still applied.
func (c *Coordinator) Resync(ctx context.Context, id string) error {
	rec := c.begin(id, CommandResync)

	err := c.withDevice(ctx, id, func(a hub.Accessory) error {
		values := make(map[hub.CharacteristicType]any)
		var errs []error
		for _, t := range resyncable {
			if _, ok := a.Characteristic(t); !ok {
				continue
			}
			v, err := c.read(ctx, id, t)
			if err != nil {
				errs = append(errs, fmt.Errorf("reading %s: %w", t, err))
				continue
			}
			values[t] = v
		}
		rec.Values = values
		if len(values) > 0 {
			c.apply(ctx, id, values)
		}
		return errors.Join(errs...)
	})
	return c.finish(ctx, rec, err)
}

func (c *Coordinator) resyncInBackground(id string) {
	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		return
	}
	c.background.Add(1)
	c.bgMu.Unlock()

	go func() {
		defer c.background.Done()
		if err := c.Resync(c.lifetime, id); err != nil && c.lifetime.Err() == nil {
			c.logger.Warn("resync after partial failure failed", "device", id, "error", err)
		}
	}()
}

// withDevice runs fn with the device lock held and the device's current
// accessory state.
func (c *Coordinator) withDevice(ctx context.Context, id string, fn func(a hub.Accessory) error) error {
	if c.mirror.Authorization() != hub.Authorized {
		return device.ErrUnauthorized
	}

	release, err := c.locks.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	a, ok := c.mirror.Accessory(id)
	if !ok {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, id)
	}
	return fn(a)
}

// write issues one hub write under the write timeout.
func (c *Coordinator) write(ctx context.Context, id string, t hub.CharacteristicType, value any) error {
	_, err := c.bounded(ctx, func(wctx context.Context) (any, error) {
		return nil, c.hub.WriteCharacteristic(wctx, id, t, value)
	})
	if err == nil {
		return nil
	}
	return &WriteError{DeviceID: id, Characteristic: t, Err: err}
}

func (c *Coordinator) read(ctx context.Context, id string, t hub.CharacteristicType) (any, error) {
	return c.bounded(ctx, func(rctx context.Context) (any, error) {
		return c.hub.ReadCharacteristic(rctx, id, t)
	})
}

type boundedResult struct {
	value any
	err   error
}

// bounded runs fn under the write timeout and returns when either fn or
// the timeout finishes. A hub call that ignores its context is left to
// complete in the background.
func (c *Coordinator) bounded(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	bctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	done := make(chan boundedResult, 1)
	go func() {
		v, err := fn(bctx)
		done <- boundedResult{value: v, err: err}
	}()

	var res boundedResult
	select {
	case res = <-done:
	case <-bctx.Done():
		res.err = bctx.Err()
	}
	if res.err != nil && errors.Is(bctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.opts.WriteTimeout, res.err)
	}
	return res.value, res.err
}

// apply patches confirmed values into the registry. The hub has already
// accepted them, so a failure here is logged rather than returned.
func (c *Coordinator) apply(ctx context.Context, id string, values map[hub.CharacteristicType]any) {
	if err := c.mirror.ApplyCharacteristics(context.WithoutCancel(ctx), id, values); err != nil {
		c.logger.Warn("applying confirmed values", "device", id, "error", err)
	}
}

func (c *Coordinator) begin(id string, cmd Command) *Record {
	return &Record{DeviceID: id, Command: cmd, Started: time.Now()}
}

// finish stores a failure in the error slot, hands the record to the
// recorders and returns err.
func (c *Coordinator) finish(ctx context.Context, rec *Record, err error) error {
	rec.Err = err
	rec.Duration = time.Since(rec.Started)

	if err != nil {
		c.setLastError(err)
		c.logger.Warn("device command failed",
			"device", rec.DeviceID,
			"command", rec.Command,
			"error", err,
		)
	} else {
		c.logger.Debug("device command confirmed",
			"device", rec.DeviceID,
			"command", rec.Command,
			"duration", rec.Duration,
		)
	}

	rctx := context.WithoutCancel(ctx)
	for _, r := range c.recorders {
		r.Record(rctx, *rec)
	}
	return err
}
