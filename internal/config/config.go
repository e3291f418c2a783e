package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig       `json:"app"`
	Logger    LoggerConfig    `json:"logger"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	Server    ServerConfig    `json:"server"`
}

type AppConfig struct {
	Name     string `json:"name" env:"APP_NAME" default:"go-loom"`
	Version  string `json:"version" env:"APP_VERSION" default:"1.0.0"`
	Profiles string `json:"profiles" env:"APP_PROFILES" default:"development"`
	Debug    bool   `json:"debug" env:"APP_DEBUG" default:"true"`
}

// ProfileList splits the comma-separated profile string.
func (a AppConfig) ProfileList() []string {
	var profiles []string
	for _, p := range strings.Split(a.Profiles, ",") {
		if p = strings.TrimSpace(p); p != "" {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

type LoggerConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format     string `json:"format" env:"LOG_FORMAT" default:"pretty"` // pretty or json
	ShowCaller bool   `json:"show_caller" env:"LOG_SHOW_CALLER" default:"false"`
	ShowColor  bool   `json:"show_color" env:"LOG_SHOW_COLOR" default:"true"`
}

type SchedulerConfig struct {
	// Workers <= 0 lets the scheduler size its pool from the CPU count.
	Workers int `json:"workers" env:"SCHEDULER_WORKERS" default:"0"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" default:"sqlite"`
	DSN             string        `json:"dsn" env:"DB_DSN" default:"app.db"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

type CacheConfig struct {
	Addr     string `json:"addr" env:"CACHE_ADDR" default:"localhost:6379"`
	Password string `json:"password" env:"CACHE_PASSWORD" default:""`
	DB       int    `json:"db" env:"CACHE_DB" default:"0"`
}

type ServerConfig struct {
	Host         string        `json:"host" env:"SERVER_HOST" default:"localhost"`
	Port         int           `json:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
