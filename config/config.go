package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"phishsim/pkg/mq"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MetadataDB  MySQL             `json:"metadata_db"`
	Tracking    Tracking          `json:"tracking"`
	Scheduler   Scheduler         `json:"scheduler"`
	HitProducer mq.ProducerConfig `json:"hit_producer"`
	HitConsumer mq.ConsumerConfig `json:"hit_consumer"`
	CORSOrigins []string          `json:"cors_origins"`
}

type MySQL struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

func (mysql *MySQL) ToDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", mysql.Username, mysql.Password, mysql.Host, mysql.Port, mysql.Database)
}

// Tracking holds the public origin the instrumented links and the open
// pixel point back at.
type Tracking struct {
	BaseURL string `json:"base_url"`
}

type Scheduler struct {
	TickIntervalMillis uint64 `json:"tick_interval_millis"`
}

func NewConfig() *Config {
	return &Config{
		MetadataDB: MySQL{
			Username: "",
			Password: "",
			Host:     "127.0.0.1",
			Port:     3306,
			Database: "phishsim_db",
		},
		Tracking: Tracking{
			BaseURL: "http://127.0.0.1:9090",
		},
		Scheduler: Scheduler{
			TickIntervalMillis: DefaultTickIntervalMillis,
		},
		CORSOrigins: []string{"*"},
	}
}

func (c *Config) Load(ctx context.Context, path string) error {
	if path == "" {
		log.Ctx(ctx).Warn().Msgf("empty config file")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Ctx(ctx).Warn().Msgf("config file does not exist, file path: %s", path)
			return nil
		}
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			log.Ctx(ctx).Error().Msgf("config file close failed, file path: %s", path)
		}
	}(f)

	p := json.NewDecoder(f)
	if err := p.Decode(&c); err != nil {
		return err
	}

	return nil
}
