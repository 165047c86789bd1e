package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kalpovskii/nervetask/internal/config"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/kalpovskii/nervetask/internal/logging"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	if cfg.KafkaBroker == "" || cfg.KafkaTopic == "" || cfg.KafkaLogFile == "" {
		logging.Logger.Fatal("Event ID: CONFIG_ERROR, Description: KAFKA_BROKER, KAFKA_TOPIC or KAFKA_LOG_FILE is not configured")
	}
	if err := logging.Init(logging.Options{System: "nervetask-kafka-logger", File: cfg.KafkaLogFile, Level: cfg.LogLevel}); err != nil {
		logging.Logger.Fatalf("Event ID: LOGGER_INIT_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: KAFKA_LOGGER_START, Description: Kafka Logger started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer r.Close()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logging.Logger.Info("Event ID: KAFKA_LOGGER_STOP, Description: Kafka Logger stopped")
				return
			}
			logging.Logger.Errorf("Event ID: KAFKA_READ_FAILED, Description: error reading message: %v", err)
			continue
		}

		event, err := kafka.Decode(m.Value)
		if err != nil {
			logging.Logger.Warnf("Event ID: KAFKA_DECODE_FAILED, Description: offset %d: %v, raw: %s", m.Offset, err, string(m.Value))
			continue
		}
		logging.Logger.WithFields(logrus.Fields{
			"tenant": event.TenantID,
			"task":   event.TaskID,
		}).Infof("Event ID: %s, Description: %s %s", event.Type, event.ID, event.Detail)
	}
}
