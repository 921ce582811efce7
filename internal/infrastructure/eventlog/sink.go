package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/fileprediction/internal/shared/id"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
)

// ErrUnknownDriver is returned for unsupported sink drivers
var ErrUnknownDriver = errors.New("unknown event log driver")

// Supported drivers
const (
	DriverJSONL   = "jsonl"
	DriverSQLite  = "sqlite"
	DriverDiscard = "discard"
)

// Sink receives event records
type Sink interface {
	LogEvent(ctx context.Context, ev types.Event) error
}

// Store is a sink that holds resources
type Store interface {
	Sink
	Name() string
	Close() error
}

// NewFromConfig creates the store for driver writing to path
func NewFromConfig(driver, path string) (Store, error) {
	switch driver {
	case DriverJSONL:
		return OpenJSONL(path)
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverDiscard, "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// prepare fills the ID and timestamp of a record
func prepare(ev types.Event) types.Event {
	if ev.ID == "" {
		ev.ID = id.NewEventID().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev
}

// Discard drops every record
type Discard struct{}

// LogEvent implements Sink
func (Discard) LogEvent(context.Context, types.Event) error { return nil }

// Name implements Store
func (Discard) Name() string { return DriverDiscard }

// Close implements Store
func (Discard) Close() error { return nil }
