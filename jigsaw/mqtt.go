package jigsaw

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler is called with the trimmed payload of a command message
// ("match", "solve", ...)
type CommandHandler func(command string)

// MQTTClient manages the broker connection and the command subscription
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	handler     CommandHandler
	isConnected bool
	mu          sync.RWMutex
}

// CommandTopic returns the topic the service listens on for commands
func CommandTopic(prefix string) string {
	return fmt.Sprintf("%s/command", prefix)
}

// InitMQTT connects to the configured broker in the background. When no
// broker is configured MQTT is disabled and both return values are nil.
func InitMQTT(config *Config, handler CommandHandler) (*MQTTClient, error) {
	if config == nil {
		return nil, fmt.Errorf("MQTT needs a configuration")
	}
	if config.MQTT.Broker == "" {
		log.Println("[MQTT] disabled: no broker configured")
		return nil, nil
	}

	c := &MQTTClient{
		config:  config,
		handler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTT.Broker)

	clientID := config.MQTT.ClientID
	if clientID == "" {
		clientID = "jigsolve"
	}
	opts.SetClientID(clientID)

	if config.MQTT.Username != "" {
		opts.SetUsername(config.MQTT.Username)
		opts.SetPassword(config.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)

	go c.connectWithRetry()

	return c, nil
}

// newMQTTClientWithMock wraps an existing mqtt.Client, used with MockClient
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler CommandHandler) *MQTTClient {
	return &MQTTClient{
		client:  client,
		config:  config,
		handler: handler,
	}
}

// connectWithRetry attempts to connect to the broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the command topic
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := CommandTopic(c.config.MQTT.PublishPrefix)
	log.Printf("[MQTT] subscribing to %s", topic)
	token := client.Subscribe(topic, 1, c.commandHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] error subscribing to %s: %v", topic, token.Error())
	}
}

// onConnectionLost is called when the connection drops; auto-reconnect retries
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] reconnecting...")
}

// commandHandler turns command messages into handler calls
func (c *MQTTClient) commandHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		command := strings.ToLower(strings.TrimSpace(string(msg.Payload())))
		if command == "" {
			log.Printf("[MQTT] empty command on %s, skipping", msg.Topic())
			return
		}
		log.Printf("[MQTT] command %q on %s", command, msg.Topic())
		if c.handler != nil {
			c.handler(command)
		}
	}
}

// IsConnected returns true if the client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}
