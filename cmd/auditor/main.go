// Auditor tails the timekeeping event stream and writes a structured
// audit line for every record change. It is the consuming counterpart of
// the producer inside the timeclock service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/timeclock/internal/attendance/events"
	"go.uber.org/zap"
)

const (
	defaultBrokers = "localhost:9092"
	defaultTopic   = "timeclock.events"
	defaultGroupID = "timeclock-auditor"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() {
		_ = logger.Sync()
	}()

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = defaultBrokers
	}
	topic := os.Getenv("TOPIC")
	if topic == "" {
		topic = defaultTopic
	}

	consumer := events.NewConsumer([]string{brokers}, defaultGroupID, topic, logger)
	defer consumer.Close()

	consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
		logger.Info("record changed",
			zap.String("event_type", string(event.Type)),
			zap.String("employee_id", event.EmployeeID.String()),
		)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Auditor stopped")
}
