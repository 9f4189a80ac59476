package jigsaw

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken is an already completed mqtt.Token
type mockToken struct {
	err error
}

func (t mockToken) Wait() bool                     { return true }
func (t mockToken) WaitTimeout(time.Duration) bool { return true }
func (t mockToken) Error() error                   { return t.err }
func (t mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// MockMessage is a message captured by MockClient
type MockMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MockClient is an in-memory mqtt.Client for tests and dry runs. It records
// every publish and routes Deliver calls to subscribed handlers.
type MockClient struct {
	mu           sync.Mutex
	connected    bool
	ConnectErr   error
	PublishErr   error
	SubscribeErr error
	OnConnect    mqtt.OnConnectHandler
	routes       map[string]mqtt.MessageHandler
	published    []MockMessage
}

// NewMockClient creates a disconnected mock client
func NewMockClient() *MockClient {
	return &MockClient{routes: make(map[string]mqtt.MessageHandler)}
}

// SetConnected forces the connection state
func (c *MockClient) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// Published returns a copy of every message published so far
func (c *MockClient) Published() []MockMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MockMessage, len(c.published))
	copy(out, c.published)
	return out
}

// PublishedOn returns the messages published on one topic
func (c *MockClient) PublishedOn(topic string) []MockMessage {
	var out []MockMessage
	for _, m := range c.Published() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Deliver hands a payload to the handler subscribed to topic, if any
func (c *MockClient) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	handler := c.routes[topic]
	c.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(c, &mockMessage{topic: topic, payload: payload})
	return true
}

func (c *MockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *MockClient) Connect() mqtt.Token {
	c.mu.Lock()
	err := c.ConnectErr
	if err == nil {
		c.connected = true
	}
	onConnect := c.OnConnect
	c.mu.Unlock()

	if err == nil && onConnect != nil {
		onConnect(c)
	}
	return mockToken{err: err}
}

func (c *MockClient) Disconnect(quiesce uint) {
	c.SetConnected(false)
}

func (c *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return mockToken{err: mqtt.ErrNotConnected}
	}
	if c.PublishErr != nil {
		return mockToken{err: c.PublishErr}
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, MockMessage{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	return mockToken{}
}

func (c *MockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return c.SubscribeMultiple(map[string]byte{topic: qos}, callback)
}

func (c *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return mockToken{err: mqtt.ErrNotConnected}
	}
	if c.SubscribeErr != nil {
		return mockToken{err: c.SubscribeErr}
	}
	for topic := range filters {
		c.routes[topic] = callback
	}
	return mockToken{}
}

func (c *MockClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.routes, topic)
	}
	return mockToken{}
}

func (c *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[topic] = callback
}

func (c *MockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// mockMessage implements mqtt.Message
type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}
