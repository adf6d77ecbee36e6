/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pipline/treasury/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5002"
	DEFAULT_RECOMPUTE_QUEUE = "recompute"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SecretKey string `json:"secret_key" envconfig:"TREASURY_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"TREASURY_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"TREASURY_DATA_SOURCE_DNS"`
	// ConnectTimeoutSec bounds the retry loop when the database is not yet reachable.
	ConnectTimeoutSec int `json:"connect_timeout_sec" envconfig:"TREASURY_DATA_SOURCE_CONNECT_TIMEOUT_SEC"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"TREASURY_REDIS_DNS"`
}

type QueueConfig struct {
	RecomputeQueue string `json:"recompute_queue" envconfig:"TREASURY_QUEUE_RECOMPUTE"`
	// Async hands recomputes to the worker instead of running them inline.
	Async          bool   `json:"async" envconfig:"TREASURY_QUEUE_ASYNC"`
	Concurrency    int    `json:"concurrency" envconfig:"TREASURY_QUEUE_CONCURRENCY"`
	MaxRetry       int    `json:"max_retry" envconfig:"TREASURY_QUEUE_MAX_RETRY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"TREASURY_QUEUE_MONITORING_PORT"`
}

type SettlementConfig struct {
	Currency         string                     `json:"currency" envconfig:"TREASURY_SETTLEMENT_CURRENCY"`
	RateBands        map[string]model.RateBand  `json:"rate_bands" ignored:"true"`
	OpeningPositions map[string]decimal.Decimal `json:"opening_positions" ignored:"true"`
}

type LockConfig struct {
	TimeoutSec int `json:"timeout_sec" envconfig:"TREASURY_LOCK_TIMEOUT_SEC"`
	WaitSec    int `json:"wait_sec" envconfig:"TREASURY_LOCK_WAIT_SEC"`
}

type CacheConfig struct {
	TTLSec int `json:"ttl_sec" envconfig:"TREASURY_CACHE_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TREASURY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TREASURY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TREASURY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"TREASURY_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
	// RolloverAlertLevel is the lowest rollover risk that triggers an alert.
	RolloverAlertLevel model.RiskLevel `json:"rollover_alert_level" envconfig:"TREASURY_ROLLOVER_ALERT_LEVEL"`
}

type TelemetryConfig struct {
	Enabled          bool   `json:"enabled" envconfig:"TREASURY_TELEMETRY_ENABLED"`
	ServiceName      string `json:"service_name" envconfig:"TREASURY_TELEMETRY_SERVICE_NAME"`
	ExporterProtocol string `json:"exporter_protocol" envconfig:"TREASURY_OTEL_EXPORTER_OTLP_PROTOCOL"`
	ExporterEndpoint string `json:"exporter_endpoint" envconfig:"TREASURY_OTEL_EXPORTER_OTLP_ENDPOINT"`
	ExporterHeaders  string `json:"exporter_headers" envconfig:"TREASURY_OTEL_EXPORTER_OTLP_HEADERS"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"TREASURY_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	Settlement   SettlementConfig `json:"settlement"`
	Lock         LockConfig       `json:"lock"`
	Cache        CacheConfig      `json:"cache"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Telemetry    TelemetryConfig  `json:"telemetry"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&cnf); err != nil {
			return fmt.Errorf("decoding %s: %w", file, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	if err := envconfig.Process("treasury", &cnf); err != nil {
		return err
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called treasury.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "PipLine Treasury"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}
	if cnf.DataSource.ConnectTimeoutSec <= 0 {
		cnf.DataSource.ConnectTimeoutSec = 30
	}

	if cnf.Queue.RecomputeQueue == "" {
		cnf.Queue.RecomputeQueue = DEFAULT_RECOMPUTE_QUEUE
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 4
	}
	if cnf.Queue.MaxRetry <= 0 {
		cnf.Queue.MaxRetry = 5
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}

	if err := cnf.Settlement.validate(); err != nil {
		return err
	}

	if cnf.Lock.TimeoutSec <= 0 {
		cnf.Lock.TimeoutSec = 30
	}
	if cnf.Lock.WaitSec <= 0 {
		cnf.Lock.WaitSec = 10
	}
	if cnf.Cache.TTLSec <= 0 {
		cnf.Cache.TTLSec = 300
	}

	switch cnf.Notification.RolloverAlertLevel {
	case "":
		cnf.Notification.RolloverAlertLevel = model.RiskCritical
	case model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		return fmt.Errorf("rollover alert level %q must be Medium, High or Critical", cnf.Notification.RolloverAlertLevel)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	if cnf.Telemetry.ServiceName == "" {
		cnf.Telemetry.ServiceName = "treasury"
	}
	return nil
}

func (s *SettlementConfig) validate() error {
	s.Currency = model.CanonicalCurrency(s.Currency)
	if s.Currency == "" {
		s.Currency = model.SettlementCurrency
	}
	if len(s.RateBands) == 0 {
		s.RateBands = model.DefaultRateBands()
	}
	for code, band := range s.RateBands {
		if !band.Min.IsPositive() || band.Max.LessThan(band.Min) {
			return fmt.Errorf("rate band for %s must satisfy 0 < min <= max", code)
		}
	}
	if s.OpeningPositions == nil {
		s.OpeningPositions = map[string]decimal.Decimal{}
	}
	return nil
}

// Normalizer builds the currency normalizer for the configured settlement currency and bands.
func (s SettlementConfig) Normalizer() *model.Normalizer {
	return model.NewNormalizer(s.Currency, s.RateBands)
}

func (l LockConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

func (l LockConfig) Wait() time.Duration {
	return time.Duration(l.WaitSec) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// SetExporterEnvs exports the configured OTLP settings as the standard
// OTEL_EXPORTER_OTLP_* variables read by the trace exporter.
func SetExporterEnvs() error {
	cnf, err := Fetch()
	if err != nil {
		return err
	}
	envs := map[string]string{
		"OTEL_EXPORTER_OTLP_PROTOCOL": cnf.Telemetry.ExporterProtocol,
		"OTEL_EXPORTER_OTLP_ENDPOINT": cnf.Telemetry.ExporterEndpoint,
		"OTEL_EXPORTER_OTLP_HEADERS":  cnf.Telemetry.ExporterHeaders,
	}
	for key, value := range envs {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
