package ecovacs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joshp123/deebot-bridge/internal/manager"
)

// Config defines runtime configuration for the Ecovacs client.
type Config struct {
	Email     string
	Password  string
	Country   string
	Continent string
}

// Client implements manager.VendorClient against the Ecovacs cloud.
type Client struct {
	cfg Config
	api *apiClient

	mu       sync.Mutex
	creds    *Credentials
	devices  map[string]portalDevice
	handlers map[string]func(manager.Event)
	mqtt     *mqttSession
}

var _ manager.VendorClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("ecovacs email and password are required")
	}
	return &Client{
		cfg:      cfg,
		api:      newAPIClient(cfg.Email, cfg.Password, cfg.Country, cfg.Continent),
		devices:  make(map[string]portalDevice),
		handlers: make(map[string]func(manager.Event)),
	}, nil
}

func (c *Client) Authenticate(ctx context.Context) error {
	creds, err := c.api.Login(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

func (c *Client) Devices(ctx context.Context) ([]manager.DeviceInfo, error) {
	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}

	devices, err := c.api.DeviceList(ctx, creds)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	out := make([]manager.DeviceInfo, 0, len(devices))
	for _, device := range devices {
		c.devices[device.DID] = device
		name := device.Nick
		if name == "" {
			name = device.Name
		}
		out = append(out, manager.DeviceInfo{
			ID:    device.DID,
			Name:  name,
			Model: device.Model,
		})
	}
	c.mu.Unlock()
	return out, nil
}

// Subscribe attaches a push-event handler for one device. The first
// subscription opens the MQTT session; later ones reuse it.
func (c *Client) Subscribe(ctx context.Context, deviceID string, handler func(manager.Event)) error {
	_ = ctx

	device, err := c.deviceByID(deviceID)
	if err != nil {
		return err
	}

	session, err := c.session()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.handlers[deviceID] = handler
	c.mu.Unlock()

	filter := fmt.Sprintf("iot/atr/+/%s/%s/%s/+", device.DID, device.Class, device.Resource)
	return session.subscribe(filter, func(topic string, payload []byte) {
		event, ok := decodeEvent(deviceID, topic, payload)
		if !ok {
			return
		}
		handler(event)
	})
}

func (c *Client) SendCommand(ctx context.Context, deviceID string, command manager.Command) error {
	creds, err := c.credentials()
	if err != nil {
		return err
	}
	device, err := c.deviceByID(deviceID)
	if err != nil {
		return err
	}

	name, data, err := commandPayload(command)
	if err != nil {
		return err
	}
	return c.api.SendCommand(ctx, creds, device, name, data)
}

// Close tears down the MQTT session.
func (c *Client) Close() {
	c.mu.Lock()
	session := c.mqtt
	c.mqtt = nil
	c.mu.Unlock()
	if session != nil {
		session.close()
	}
}

func commandPayload(command manager.Command) (string, any, error) {
	switch command {
	case manager.CommandStart:
		return "clean", map[string]any{"act": "start", "type": "auto"}, nil
	case manager.CommandStop:
		return "clean", map[string]any{"act": "stop"}, nil
	case manager.CommandPause:
		return "clean", map[string]any{"act": "pause"}, nil
	case manager.CommandDock:
		return "charge", map[string]any{"act": "go"}, nil
	case manager.CommandLocate:
		return "playSound", map[string]any{"count": 1, "sid": 30}, nil
	default:
		return "", nil, fmt.Errorf("unsupported command %q", command)
	}
}

func (c *Client) credentials() (*Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds == nil {
		return nil, errors.New("not authenticated")
	}
	return c.creds, nil
}

func (c *Client) deviceByID(deviceID string) (portalDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	device, ok := c.devices[deviceID]
	if !ok {
		return portalDevice{}, fmt.Errorf("device %s not found", deviceID)
	}
	return device, nil
}

func (c *Client) session() (*mqttSession, error) {
	c.mu.Lock()
	if c.mqtt != nil {
		session := c.mqtt
		c.mu.Unlock()
		return session, nil
	}
	creds := c.creds
	c.mu.Unlock()
	if creds == nil {
		return nil, errors.New("not authenticated")
	}

	session, err := newMQTTSession(mqttConfigFromCredentials(creds, c.cfg.Continent), c.markAllOffline)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.mqtt == nil {
		c.mqtt = session
	}
	c.mu.Unlock()
	return session, nil
}

// markAllOffline emits an availability event for every subscribed
// device when the push connection drops.
func (c *Client) markAllOffline() {
	c.mu.Lock()
	handlers := make(map[string]func(manager.Event), len(c.handlers))
	for id, handler := range c.handlers {
		handlers[id] = handler
	}
	c.mu.Unlock()

	for id, handler := range handlers {
		handler(manager.Event{DeviceID: id, Kind: manager.EventAvailability, Online: false})
	}
}
