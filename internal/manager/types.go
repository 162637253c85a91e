package manager

import (
	"context"
	"time"
)

// CleanState is the normalized cleaning state reported for a vacuum.
type CleanState string

const (
	StateIdle     CleanState = "idle"
	StateCleaning CleanState = "cleaning"
	StatePaused   CleanState = "paused"
	StateDocking  CleanState = "docking"
	StateCharging CleanState = "charging"
	StateError    CleanState = "error"
	StateUnknown  CleanState = "unknown"
)

// Command identifies a forwardable vacuum command.
type Command string

const (
	CommandStart  Command = "start"
	CommandStop   Command = "stop"
	CommandPause  Command = "pause"
	CommandDock   Command = "dock"
	CommandLocate Command = "locate"
)

// Commands lists every supported command kind.
func Commands() []Command {
	return []Command{CommandStart, CommandStop, CommandPause, CommandDock, CommandLocate}
}

// Record is the cached last-known state for one vacuum. Fields reflect
// the most recent push event received, never a polled value.
type Record struct {
	DeviceID     string     `json:"device_id"`
	Name         string     `json:"name"`
	Model        string     `json:"model"`
	Online       bool       `json:"online"`
	Battery      *int       `json:"battery_level"`
	State        CleanState `json:"cleaning_state"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LastUpdated  time.Time  `json:"last_updated,omitempty"`
}

// EventKind discriminates push events from the vendor cloud.
type EventKind string

const (
	EventBattery      EventKind = "battery"
	EventState        EventKind = "state"
	EventError        EventKind = "error"
	EventAvailability EventKind = "availability"
)

// Event is a decoded push notification for one device.
type Event struct {
	DeviceID     string
	Kind         EventKind
	Battery      int
	State        CleanState
	ErrorCode    string
	ErrorMessage string
	Online       bool
}

// DeviceInfo is the vendor cloud's description of a discovered device.
type DeviceInfo struct {
	ID    string
	Name  string
	Model string
}

// VendorClient is the capability surface required from the Ecovacs
// cloud client. It exists so the vendor layer can be swapped or
// stubbed in tests.
type VendorClient interface {
	Authenticate(ctx context.Context) error
	Devices(ctx context.Context) ([]DeviceInfo, error)
	Subscribe(ctx context.Context, deviceID string, handler func(Event)) error
	SendCommand(ctx context.Context, deviceID string, command Command) error
}
