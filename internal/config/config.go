// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"lightuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"light_engine"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Ho_Chi_Minh"`

	// --- Logging ---
	// Пустой LOG_FILE — только stdout.
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`

	// --- Rules ---
	// RULES_FILE — дополнительные версии правил (toml/yaml/json). V1 встроена.
	RulesFile    string `envconfig:"RULES_FILE"`
	RulesVersion string `envconfig:"RULES_VERSION" default:"V1.0"`

	// --- Epochs ---
	EpochPoolAmount float64 `envconfig:"EPOCH_POOL_AMOUNT" default:"1000000"`
	EpochCloseCron  string  `envconfig:"EPOCH_CLOSE_CRON" default:"30 0 1 * *"`
	DailyScoreCron  string  `envconfig:"DAILY_SCORE_CRON" default:"10 0 * * *"`
	RecalcBatchSize int     `envconfig:"RECALC_BATCH_SIZE" default:"500"`

	// --- HTTP ---
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Admin ---
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH" required:"true"`

	// --- Kafka ---
	KafkaBrokersRaw string   `envconfig:"KAFKA_BROKERS"`
	KafkaBrokers    []string `envconfig:"-"` // заполним вручную
	KafkaTopic      string   `envconfig:"KAFKA_TOPIC" default:"pplp.actions"`
	KafkaGroupID    string   `envconfig:"KAFKA_GROUP_ID" default:"light-engine"`

	// --- Telegram ---
	TelegramBotToken         string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramReportChatIDsRaw string  `envconfig:"TELEGRAM_REPORT_CHAT_IDS"`
	TelegramReportChatIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Feature Flags ---
	FeatureDailyScoring    bool `envconfig:"FEATURE_DAILY_SCORING" default:"true"`
	FeatureKafkaIngest     bool `envconfig:"FEATURE_KAFKA_INGEST" default:"false"`
	FeatureTelegramReports bool `envconfig:"FEATURE_TELEGRAM_REPORTS" default:"false"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if strings.TrimSpace(c.RulesVersion) == "" {
		return fmt.Errorf("RULES_VERSION не задана")
	}
	if c.EpochPoolAmount <= 0 {
		return fmt.Errorf("EPOCH_POOL_AMOUNT должен быть > 0")
	}
	if c.RecalcBatchSize <= 0 {
		return fmt.Errorf("RECALC_BATCH_SIZE должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE %q: %w", c.AppTimezone, err)
	}
	if _, err := cron.ParseStandard(c.DailyScoreCron); err != nil {
		return fmt.Errorf("DAILY_SCORE_CRON %q: %w", c.DailyScoreCron, err)
	}
	if _, err := cron.ParseStandard(c.EpochCloseCron); err != nil {
		return fmt.Errorf("EPOCH_CLOSE_CRON %q: %w", c.EpochCloseCron, err)
	}
	if c.FeatureKafkaIngest && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		return fmt.Errorf("FEATURE_KAFKA_INGEST включён, но KAFKA_BROKERS/KAFKA_TOPIC не заданы")
	}
	if c.FeatureTelegramReports && (c.TelegramBotToken == "" || len(c.TelegramReportChatIDs) == 0) {
		return fmt.Errorf("FEATURE_TELEGRAM_REPORTS включён, но TELEGRAM_BOT_TOKEN/TELEGRAM_REPORT_CHAT_IDS не заданы")
	}
	return nil
}

// Location возвращает часовой пояс платформы (после Validate ошибки быть не может).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.KafkaBrokers = parseCSV(cfg.KafkaBrokersRaw)

	ids, err := parseInt64CSV(cfg.TelegramReportChatIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_REPORT_CHAT_IDS parse: %w", err)
	}
	cfg.TelegramReportChatIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64CSV(s string) ([]int64, error) {
	parts := parseCSV(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
