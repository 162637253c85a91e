package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the cloud rejected the configured credentials.
	ErrAuthentication = errors.New("ecovacs authentication rejected")

	// ErrNoDevices means the account reported zero devices at discovery.
	ErrNoDevices = errors.New("account reports zero devices")

	// ErrDeviceNotFound means the device id is not in the cache.
	ErrDeviceNotFound = errors.New("device not found")
)

// CommandError wraps a vendor-layer rejection or timeout for a single command.
type CommandError struct {
	DeviceID string
	Command  Command
	Err      error
}

func (e CommandError) Error() string {
	return fmt.Sprintf("command %s on device %s failed: %v", e.Command, e.DeviceID, e.Err)
}

func (e CommandError) Unwrap() error {
	return e.Err
}
