package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Cache        CacheConfig        `yaml:"cache"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Auth         AuthConfig         `yaml:"auth"`
	Notification NotificationConfig `yaml:"notification"`
	Worker       WorkerConfig       `yaml:"worker"`
}

type HTTPConfig struct {
	Address                string   `yaml:"address"`
	SwaggerDir             string   `yaml:"swagger_dir"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
	CORSAllowedOrigins     []string `yaml:"cors_allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig selects the listing cache backend. Driver "memory" keeps entries
// in-process and is meant for single-instance deployments and local runs.
type CacheConfig struct {
	Driver            string `yaml:"driver"`
	Prefix            string `yaml:"prefix"`
	FlightsTTLSeconds int    `yaml:"flights_ttl_seconds"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type NotificationConfig struct {
	TelegramBotToken      string `yaml:"telegram_bot_token"`
	TelegramChatID        string `yaml:"telegram_chat_id"`
	TelegramAPIURL        string `yaml:"telegram_api_url"`
	SendTimeoutSeconds    int    `yaml:"send_timeout_seconds"`
	PublishTimeoutSeconds int    `yaml:"publish_timeout_seconds"`
	Timezone              string `yaml:"timezone"`
	DepartureChangedText  string `yaml:"departure_changed_message"`
	ReminderText          string `yaml:"reminder_message"`
}

type WorkerConfig struct {
	// ReminderAt is the daily "HH:MM" reminder run in notification.timezone.
	ReminderAt string `yaml:"reminder_at"`
}

const (
	DefaultDepartureChangedText = "Departure time of flight {route} has been changed from {old_time} to {new_time}"
	DefaultReminderText         = "Reminder: your flight {route} departs tomorrow at {departure_time}"
)

func LoadConfig(path string) (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Database.Password, "DATABASE_PASSWORD")
	overrideString(&c.Redis.Password, "REDIS_PASSWORD")
	overrideString(&c.Auth.JWTSecret, "JWT_SECRET")
	overrideString(&c.Notification.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&c.Notification.TelegramChatID, "TELEGRAM_CHAT_ID")
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.Port = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ShutdownTimeoutSeconds <= 0 {
		c.HTTP.ShutdownTimeoutSeconds = 5
	}
	if len(c.HTTP.CORSAllowedOrigins) == 0 {
		c.HTTP.CORSAllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "flights"
	}
	if c.Cache.FlightsTTLSeconds <= 0 {
		c.Cache.FlightsTTLSeconds = 300
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "flight-notifications"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "notification-worker"
	}
	if c.Notification.TelegramAPIURL == "" {
		c.Notification.TelegramAPIURL = "https://api.telegram.org"
	}
	if c.Notification.SendTimeoutSeconds <= 0 {
		c.Notification.SendTimeoutSeconds = 10
	}
	if c.Notification.PublishTimeoutSeconds <= 0 {
		c.Notification.PublishTimeoutSeconds = 3
	}
	if c.Notification.Timezone == "" {
		c.Notification.Timezone = "UTC"
	}
	if c.Notification.DepartureChangedText == "" {
		c.Notification.DepartureChangedText = DefaultDepartureChangedText
	}
	if c.Notification.ReminderText == "" {
		c.Notification.ReminderText = DefaultReminderText
	}
	if c.Worker.ReminderAt == "" {
		c.Worker.ReminderAt = "09:00"
	}
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
