package jigsaw

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ProgressMessage is published each time the solver places more pieces
type ProgressMessage struct {
	Placed    int     `json:"placed"`
	Total     int     `json:"total"`
	ElapsedMs int64   `json:"elapsedMs"`
	Timestamp int64   `json:"timestamp"`
	Ratio     float64 `json:"ratio"`
}

// SolutionMessage is published when a solve finishes
type SolutionMessage struct {
	Count      int         `json:"count"`
	Total      int         `json:"total"`
	Layouts    int         `json:"layouts"`
	Cost       float64     `json:"cost"`
	Placements []Placement `json:"placements"`
	Timestamp  int64       `json:"timestamp"`
}

// Publisher sends solver progress and results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          *SolutionMessage
	mu            sync.RWMutex
}

// NewPublisher creates a publisher under prefix. A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "jigsolve"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true,
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages are retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

func (p *Publisher) publish(topic string, v interface{}) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// PublishProgress publishes to <prefix>/progress
func (p *Publisher) PublishProgress(pr Progress) error {
	msg := ProgressMessage{
		Placed:    pr.Placed,
		Total:     pr.Total,
		ElapsedMs: pr.Elapsed.Milliseconds(),
		Timestamp: time.Now().Unix(),
	}
	if pr.Total > 0 {
		msg.Ratio = float64(pr.Placed) / float64(pr.Total)
	}
	return p.publish(fmt.Sprintf("%s/progress", p.publishPrefix), msg)
}

// PublishSolution publishes the best layout of set to <prefix>/solution
func (p *Publisher) PublishSolution(set *SolutionSet, total int) error {
	msg := &SolutionMessage{
		Total:      total,
		Placements: []Placement{},
		Timestamp:  time.Now().Unix(),
	}
	if set != nil {
		msg.Count = set.Count
		msg.Layouts = len(set.Grids)
		if best := set.Best(); best != nil {
			msg.Placements = best.Placements()
			msg.Cost = set.Costs[0]
		}
	}

	p.mu.Lock()
	p.last = msg
	p.mu.Unlock()

	if err := p.publish(fmt.Sprintf("%s/solution", p.publishPrefix), msg); err != nil {
		return err
	}
	log.Printf("[MQTT] published solution: %d/%d pieces, %d layout(s)", msg.Count, msg.Total, msg.Layouts)
	return nil
}

// PublishReport publishes a matching summary to <prefix>/matching
func (p *Publisher) PublishReport(r *MatchReport) error {
	return p.publish(fmt.Sprintf("%s/matching", p.publishPrefix), r)
}

// LastSolution returns the last solution message, published or not
func (p *Publisher) LastSolution() (*SolutionMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil, false
	}
	msg := *p.last
	return &msg, true
}
