// Command memphis-example is a minimal producer/consumer walkthrough wired
// against environment configuration instead of hardcoded flags.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/memphisdev/memphis.go"
	"github.com/memphisdev/memphis.go/pkg/config"
	"github.com/memphisdev/memphis.go/pkg/logger"
)

// appConfig is loaded from a .env file or the process environment via
// pkg/config.Load, which also validates the struct tags below.
type appConfig struct {
	Host     string `env:"MEMPHIS_HOST" env-default:"localhost" validate:"required"`
	Username string `env:"MEMPHIS_USERNAME" env-default:"root"`
	Password string `env:"MEMPHIS_PASSWORD"`
	Station  string `env:"MEMPHIS_STATION" env-default:"orders"`

	Logging logger.Config
}

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	conn, err := memphis.Connect(cfg.Host, cfg.Username, cfg.Password)
	if err != nil {
		logger.L().Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	station, err := conn.CreateStation(cfg.Station, memphis.StationRetention("message_age_sec", 3600))
	if err != nil {
		logger.L().Error("create station failed", "error", err)
		os.Exit(1)
	}
	defer station.Destroy()

	producer, err := station.CreateProducer("example-producer")
	if err != nil {
		logger.L().Error("create producer failed", "error", err)
		os.Exit(1)
	}
	defer producer.Destroy()

	if _, err := producer.Produce(memphis.NewEnvelope([]byte(`{"hello":"world"}`))); err != nil {
		logger.L().Error("produce failed", "error", err)
		os.Exit(1)
	}

	consumer, err := station.CreateConsumer("example-consumer", memphis.ConsumerBatchWait(2*time.Second))
	if err != nil {
		logger.L().Error("create consumer failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Destroy()

	for msg := range consumer.Consume() {
		logger.L().Info("received message", "data", string(msg.Data()))
		msg.Ack()
		return
	}
}
