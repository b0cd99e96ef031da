package config

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

func MustLoad() *Config {
	op := "config.MustLoad"
	log := slog.With(
		slog.String("op", op),
	)
	defaultConfigPath := "config.yml"

	configPath := fetchConfigPath()

	if configPath == "" {
		log.Warn("config path is empty. Loading default config path",
			slog.String("defaultConfigPath", defaultConfigPath))
		configPath = defaultConfigPath
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}
	return cfg
}

// Load reads the YAML file at configPath and overlays environment variables.
func Load(configPath string) (*Config, error) {
	op := "config.Load"
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("%s: config file %s: %w", op, configPath, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.configPath = configPath
	return &cfg, nil
}

// IsAdmin reports whether username is listed in bot.admins. The leading "@"
// and letter case are ignored.
func (cfg *Config) IsAdmin(username string) bool {
	cfg.adminsMu.RLock()
	defer cfg.adminsMu.RUnlock()
	return cfg.adminIndex(username) >= 0
}

// AddAdmin appends username to bot.admins and writes the config file.
// It reports false when the user is already an admin.
func (cfg *Config) AddAdmin(username string) (bool, error) {
	cfg.adminsMu.Lock()
	defer cfg.adminsMu.Unlock()

	username = normalizeUsername(username)
	if username == "" || cfg.adminIndex(username) >= 0 {
		return false, nil
	}
	cfg.BotConfig.Admins = append(cfg.BotConfig.Admins, username)
	if err := cfg.Write(); err != nil {
		cfg.BotConfig.Admins = cfg.BotConfig.Admins[:len(cfg.BotConfig.Admins)-1]
		return false, err
	}
	return true, nil
}

// RemoveAdmin drops username from bot.admins and writes the config file.
// It reports false when the user was not an admin.
func (cfg *Config) RemoveAdmin(username string) (bool, error) {
	cfg.adminsMu.Lock()
	defer cfg.adminsMu.Unlock()

	idx := cfg.adminIndex(username)
	if idx < 0 {
		return false, nil
	}
	prev := slices.Clone(cfg.BotConfig.Admins)
	cfg.BotConfig.Admins = slices.Delete(cfg.BotConfig.Admins, idx, idx+1)
	if err := cfg.Write(); err != nil {
		cfg.BotConfig.Admins = prev
		return false, err
	}
	return true, nil
}

func (cfg *Config) adminIndex(username string) int {
	username = normalizeUsername(username)
	if username == "" {
		return -1
	}
	return slices.IndexFunc(cfg.BotConfig.Admins, func(admin string) bool {
		return strings.EqualFold(normalizeUsername(admin), username)
	})
}

func normalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

func fetchConfigPath() string {
	op := "config.fetchConfigPath"
	log := slog.With(
		slog.String("op", op),
	)

	var res string

	if f := flag.Lookup("config"); f != nil {
		res = f.Value.String()
	} else {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res != "" {
		log.Info("load config path from command line.",
			slog.String("path", res))
		return res
	}
	res = fmt.Sprintf("%s%s",
		os.Getenv("CONFIG_FILEPATH"),
		os.Getenv("CONFIG_FILENAME"))
	log.Info(
		"load config path from env",
		slog.String("CONFIG_FILEPATH", os.Getenv("CONFIG_FILEPATH")),
		slog.String("CONFIG_FILENAME", os.Getenv("CONFIG_FILENAME")),
	)
	return res
}

// Write persists the config back to the file it was loaded from.
// Callers changing bot.admins hold adminsMu.
func (cfg *Config) Write() error {
	bufWrite, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config.Write: marshal: %w", err)
	}

	err = os.WriteFile(cfg.configPath, bufWrite, 0o600)
	if err != nil {
		return fmt.Errorf("config.Write: %w", err)
	}
	return nil
}
