package manager

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Manager owns the device-id-to-record cache. Records are created at
// discovery, mutated only by push-event callbacks, and read as
// snapshot copies.
type Manager struct {
	client VendorClient

	mu          sync.RWMutex
	records     map[string]*Record
	initialized bool
}

func New(client VendorClient) *Manager {
	return &Manager{
		client:  client,
		records: make(map[string]*Record),
	}
}

// Initialize authenticates, discovers devices, and subscribes each one
// to push events. An authentication failure is fatal to the caller;
// ErrNoDevices leaves the manager initialized with an empty cache so
// the HTTP layer can keep serving (degraded).
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.client.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	devices, err := m.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}

	m.mu.Lock()
	for _, device := range devices {
		if _, exists := m.records[device.ID]; exists {
			continue
		}
		m.records[device.ID] = &Record{
			DeviceID: device.ID,
			Name:     device.Name,
			Model:    device.Model,
			State:    StateUnknown,
		}
	}
	m.initialized = true
	m.mu.Unlock()

	for _, device := range devices {
		id := device.ID
		if err := m.client.Subscribe(ctx, id, m.applyEvent); err != nil {
			return fmt.Errorf("subscribe device %s: %w", id, err)
		}
		log.Printf("subscribed to push events for device %s (%s)", id, device.Name)
	}

	if len(devices) == 0 {
		return ErrNoDevices
	}
	return nil
}

// applyEvent is the single writer for cached record fields.
func (m *Manager) applyEvent(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[event.DeviceID]
	if !ok {
		log.Printf("dropping %s event for unknown device %s", event.Kind, event.DeviceID)
		return
	}

	switch event.Kind {
	case EventBattery:
		battery := event.Battery
		record.Battery = &battery
		record.Online = true
	case EventState:
		record.State = event.State
		record.Online = true
	case EventError:
		record.ErrorCode = event.ErrorCode
		record.ErrorMessage = event.ErrorMessage
		if event.ErrorCode != "" {
			record.State = StateError
		}
		record.Online = true
	case EventAvailability:
		record.Online = event.Online
	default:
		return
	}
	record.LastUpdated = time.Now().UTC()
}

// Devices returns a snapshot of all cached records, ordered by device id.
func (m *Manager) Devices() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Status returns the cached record for one device.
func (m *Manager) Status(deviceID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[deviceID]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return *record, nil
}

// SendCommand forwards a command to the vendor layer. Unknown devices
// fail before any cloud round-trip.
func (m *Manager) SendCommand(ctx context.Context, deviceID string, command Command) error {
	m.mu.RLock()
	_, ok := m.records[deviceID]
	m.mu.RUnlock()
	if !ok {
		commandsTotal.WithLabelValues(string(command), "not_found").Inc()
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	if err := m.client.SendCommand(ctx, deviceID, command); err != nil {
		commandsTotal.WithLabelValues(string(command), "error").Inc()
		return CommandError{DeviceID: deviceID, Command: command, Err: err}
	}

	commandsTotal.WithLabelValues(string(command), "ok").Inc()
	log.Printf("sent %s command to device %s", command, deviceID)
	return nil
}

// Connected reports the current size of the device cache.
func (m *Manager) Connected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Initialized reports whether discovery has completed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}
