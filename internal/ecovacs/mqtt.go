package ecovacs

import (
	"crypto/tls"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttSession wraps a paho client connected to the Ecovacs push broker.
// Subscriptions survive reconnects; connection loss is reported so the
// caller can mark devices unavailable.
type mqttSession struct {
	client mqtt.Client

	mu     sync.Mutex
	subs   map[string]func(topic string, payload []byte)
	onLost func()
}

type mqttConfig struct {
	host     string
	port     int
	username string
	password string
	clientID string
}

func newMQTTSession(cfg mqttConfig, onLost func()) (*mqttSession, error) {
	session := &mqttSession{
		subs:   make(map[string]func(string, []byte)),
		onLost: onLost,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", cfg.host, cfg.port))
	opts.SetTLSConfig(&tls.Config{})
	opts.SetUsername(cfg.username)
	opts.SetPassword(cfg.password)
	opts.SetClientID(cfg.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(_ mqtt.Client) {
		session.resubscribeAll()
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
		if session.onLost != nil {
			session.onLost()
		}
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	session.client = client
	return session, nil
}

func (s *mqttSession) subscribe(filter string, handler func(topic string, payload []byte)) error {
	s.mu.Lock()
	s.subs[filter] = handler
	s.mu.Unlock()

	token := s.client.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (s *mqttSession) resubscribeAll() {
	s.mu.Lock()
	filters := make(map[string]func(string, []byte), len(s.subs))
	for filter, handler := range s.subs {
		filters[filter] = handler
	}
	s.mu.Unlock()

	for filter, handler := range filters {
		h := handler
		_ = s.client.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
			h(msg.Topic(), msg.Payload())
		}).Wait()
	}
}

func (s *mqttSession) close() {
	s.client.Disconnect(250)
}

func mqttConfigFromCredentials(creds *Credentials, continent string) mqttConfig {
	return mqttConfig{
		host:     fmt.Sprintf("mq-%s.ecouser.net", strings.ToLower(continent)),
		port:     8883,
		username: creds.UserID + "@" + portalRealm,
		password: creds.Token,
		clientID: creds.UserID + "@ecouser/" + creds.Resource,
	}
}
