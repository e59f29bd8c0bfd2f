package control

import (
	"context"
	"time"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Command names a coordinator operation.
type Command string

// Commands handed to recorders.
const (
	CommandToggle        Command = "toggle"
	CommandSetBrightness Command = "set_brightness"
	CommandSetColor      Command = "set_color"
	CommandSetPower      Command = "set_power"
	CommandResync        Command = "resync"
)

// Record describes one finished command on one device.
type Record struct {
	DeviceID string
	Command  Command
	// Values holds the requested values. On success they are confirmed by
	// the hub; for resync they are the values read back.
	Values   map[hub.CharacteristicType]any
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Recorder receives command records. Implementations must be safe for
// concurrent use and should not block for long.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record)

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, rec Record) {
	f(ctx, rec)
}
