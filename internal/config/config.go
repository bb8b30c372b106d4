package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TCPPort     string        `yaml:"tcp_port"`
	MetricsPort string        `yaml:"metrics_port"`
	GRPCServer  string        `yaml:"grpc_server"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
	ProxyAddr   string        `yaml:"proxy_addr"`
	MQTTBroker  string        `yaml:"mqtt_broker"`
	MQTTTopic   string        `yaml:"mqtt_topic"`
	ArchivePath string        `yaml:"archive_path"`
	LogLevel    string        `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		TCPPort:     "8001",
		MetricsPort: "9000",
		RedisAddr:   "localhost:6379",
		RedisTTL:    10 * time.Minute,
		MQTTTopic:   "ghcodec/tracking",
		ArchivePath: "logs/ALLTRACKINGS.log",
		LogLevel:    "info",
	}
}

// Load arma la config: defaults, luego el YAML de CONFIG_FILE (si existe),
// luego variables de entorno.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.TCPPort = getEnv("TCP_PORT", cfg.TCPPort)
	cfg.MetricsPort = getEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.GRPCServer = getEnv("GRPC_SERVER", cfg.GRPCServer)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.ProxyAddr = getEnv("PROXY_ADDR", cfg.ProxyAddr)
	cfg.MQTTBroker = getEnv("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTTopic = getEnv("MQTT_TOPIC", cfg.MQTTTopic)
	cfg.ArchivePath = getEnv("ARCHIVE_PATH", cfg.ArchivePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := os.Getenv("REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_TTL: %w", err)
		}
		cfg.RedisTTL = d
	}

	if err := validPort(cfg.TCPPort); err != nil {
		return Config{}, fmt.Errorf("tcp_port: %w", err)
	}
	if err := validPort(cfg.MetricsPort); err != nil {
		return Config{}, fmt.Errorf("metrics_port: %w", err)
	}
	return cfg, nil
}

func validPort(p string) error {
	n, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("invalid port %q", p)
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port %d out of range", n)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
