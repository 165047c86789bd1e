package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kalpovskii/nervetask/internal/logging"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

const (
	EventTenantProvisioned     = "tenant.provisioned"
	EventTenantProvisionFailed = "tenant.provision_failed"
	EventTenantDeactivated     = "tenant.deactivated"
	EventTenantCreated         = "tenant.created"
	EventTaskTagsUpdated       = "task.tags_updated"
	EventTaskTermsUpdated      = "task.terms_updated"
)

type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	TenantID int64     `json:"tenant_id"`
	TaskID   int64     `json:"task_id,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

func NewEvent(eventType string, tenantID int64) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		TenantID: tenantID,
		Time:     time.Now().UTC(),
	}
}

type Producer struct {
	writer  *kafka.Writer
	breaker *gobreaker.CircuitBreaker
}

func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "kafka-producer",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
			},
		}),
	}
}

// Publish never fails the caller; events are best effort.
func (p *Producer) Publish(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Errorf("Event ID: KAFKA_ENCODE_FAILED, Description: failed to encode %s: %v", event.Type, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.TenantID, 10)),
		Value: value,
		Time:  event.Time,
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: KAFKA_WRITE_FAILED, Description: failed to write %s for tenant %d: %v", event.Type, event.TenantID, err)
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Decode parses a message value written by Publish.
func Decode(value []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(value, &event)
	return event, err
}
