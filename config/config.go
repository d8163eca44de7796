package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"ARTHA_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"ARTHA_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"ARTHA_SERVER_PORT"`
	SSL       bool   `json:"ssl" envconfig:"ARTHA_SERVER_SSL"`
	Domain    string `json:"domain" envconfig:"ARTHA_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"ARTHA_SERVER_SSL_EMAIL"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"ARTHA_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"ARTHA_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"ARTHA_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	WebhookQueue string `json:"webhook_queue" envconfig:"ARTHA_QUEUE_WEBHOOK"`
	SweepQueue   string `json:"sweep_queue" envconfig:"ARTHA_QUEUE_SWEEP"`
	SweepCron    string `json:"sweep_cron" envconfig:"ARTHA_QUEUE_SWEEP_CRON"`
}

// EngineConfig carries the tunables of the ledger and credit-instrument
// engine. Monetary values are minor units of the account currency.
type EngineConfig struct {
	MinLoanPrincipal    int64 `json:"min_loan_principal" envconfig:"ARTHA_ENGINE_MIN_LOAN_PRINCIPAL"`
	MinDepositPrincipal int64 `json:"min_deposit_principal" envconfig:"ARTHA_ENGINE_MIN_DEPOSIT_PRINCIPAL"`
	PinMaxAttempts      int   `json:"pin_max_attempts" envconfig:"ARTHA_ENGINE_PIN_MAX_ATTEMPTS"`
	PinLockoutWindowSec int   `json:"pin_lockout_window_sec" envconfig:"ARTHA_ENGINE_PIN_LOCKOUT_WINDOW_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"ARTHA_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"ARTHA_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"ARTHA_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string       `json:"project_name" envconfig:"ARTHA_PROJECT_NAME"`
	EnableTelemetry bool         `json:"enable_telemetry" envconfig:"ARTHA_ENABLE_TELEMETRY"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	Engine       EngineConfig     `json:"engine"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`

	BackupDir          string `json:"backup_dir" envconfig:"ARTHA_BACKUP_DIR"`
	AwsAccessKeyId     string `json:"aws_access_key_id"`
	AwsSecretAccessKey string `json:"aws_secret_access_key"`
	S3Region           string `json:"s3_region"`
	S3BucketName       string `json:"s3_bucket_name"`
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
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("artha", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called artha.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Artha Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.BackupDir == "" {
		cnf.BackupDir = "backups"
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "artha_webhook"
	}
	if cnf.Queue.SweepQueue == "" {
		cnf.Queue.SweepQueue = "artha_sweep"
	}
	if cnf.Queue.SweepCron == "" {
		// Once a day at midnight; the sweep is idempotent so the exact cadence
		// only affects how promptly due schedules advance.
		cnf.Queue.SweepCron = "0 0 * * *"
	}

	if cnf.Engine.MinLoanPrincipal <= 0 {
		cnf.Engine.MinLoanPrincipal = 1000_00
	}
	if cnf.Engine.MinDepositPrincipal <= 0 {
		cnf.Engine.MinDepositPrincipal = 500_00
	}
	if cnf.Engine.PinMaxAttempts <= 0 {
		cnf.Engine.PinMaxAttempts = 5
	}
	if cnf.Engine.PinLockoutWindowSec <= 0 {
		cnf.Engine.PinLockoutWindowSec = 900
	}

	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.applyEngineDefaults()
	ConfigStore.Store(mockConfig)
}

func (cnf *Configuration) applyEngineDefaults() {
	if cnf.Engine.PinMaxAttempts <= 0 {
		cnf.Engine.PinMaxAttempts = 5
	}
	if cnf.Engine.PinLockoutWindowSec <= 0 {
		cnf.Engine.PinLockoutWindowSec = 900
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "artha_webhook"
	}
	if cnf.Queue.SweepQueue == "" {
		cnf.Queue.SweepQueue = "artha_sweep"
	}
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
