package config

import (
	"sync"
	"time"
)

type Config struct {
	Env             string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	DBConfig        DBConfig      `yaml:"db" env-required:"true"`
	BotConfig       BotConfig     `yaml:"bot"`
	NatsConfig      NatsConfig    `yaml:"nats"`
	RubricConfig    RubricConfig  `yaml:"rubric"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
	ConfigFilePath  string        `yaml:"configFilePath" env:"CONFIG_FILEPATH" env-default:""`
	ConfigFileName  string        `yaml:"configFileName" env:"CONFIG_FILENAME" env-default:""`
	configPath      string
	adminsMu        sync.RWMutex
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"case_lifecycle"`
}

// BotConfig configures the staff console. An empty token disables the bot.
type BotConfig struct {
	Admins        []string `yaml:"admins" env:"TGBOT_ADMINS" env-separator:","`
	TgbotApiToken string   `yaml:"tgbot_apitoken" env:"TGBOT_APITOKEN"`
	StaffChatIDs  []int64  `yaml:"staffChatIds" env:"TGBOT_STAFF_CHAT_IDS" env-separator:","`
}

// NatsConfig configures lifecycle event publishing. An empty URL disables it.
type NatsConfig struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subjectPrefix" env:"NATS_SUBJECT_PREFIX" env-default:"cases"`
}

// RubricConfig overrides the embedded rubric documents.
type RubricConfig struct {
	ConventionalPath string `yaml:"conventionalPath" env:"RUBRIC_CONVENTIONAL_PATH"`
	ElectricPath     string `yaml:"electricPath" env:"RUBRIC_ELECTRIC_PATH"`
}
