package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(&LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.App.Name != "go-loom" {
		t.Errorf("Expected default app name go-loom, got %q", config.App.Name)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}
	if config.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected default read timeout 15s, got %v", config.Server.ReadTimeout)
	}
	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected default driver sqlite, got %q", config.Database.Driver)
	}
	if config.Scheduler.Workers != 0 {
		t.Errorf("Expected default scheduler workers 0, got %d", config.Scheduler.Workers)
	}
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "loom-test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30s")
	t.Setenv("APP_DEBUG", "false")

	config, err := Load(&LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.App.Name != "loom-test" {
		t.Errorf("Expected app name loom-test, got %q", config.App.Name)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Server.Port)
	}
	if config.Database.ConnMaxLifetime != 30*time.Second {
		t.Errorf("Expected 30s lifetime, got %v", config.Database.ConnMaxLifetime)
	}
	if config.App.Debug {
		t.Error("Expected debug disabled")
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	if _, err := Load(&LoadOptions{}); err == nil {
		t.Error("Expected an error for a non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		config, err := Load(&LoadOptions{})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"empty app name", func(c *Config) { c.App.Name = "" }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"idle exceeds open", func(c *Config) {
			c.Database.MaxIdleConns = 50
			c.Database.MaxOpenConns = 10
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			tt.mutate(config)
			err := Validate(config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAppConfig_ProfileList(t *testing.T) {
	tests := []struct {
		profiles string
		want     []string
	}{
		{"development", []string{"development"}},
		{"development, cache ,metrics", []string{"development", "cache", "metrics"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		got := AppConfig{Profiles: tt.profiles}.ProfileList()
		if len(got) != len(tt.want) {
			t.Errorf("ProfileList(%q) = %v, want %v", tt.profiles, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ProfileList(%q) = %v, want %v", tt.profiles, got, tt.want)
			}
		}
	}
}

func TestEnvProperties(t *testing.T) {
	t.Setenv("LOOM_TEST_PROP", "enabled")

	props := EnvProperties()
	if props["LOOM_TEST_PROP"] != "enabled" {
		t.Errorf("Expected LOOM_TEST_PROP=enabled, got %q", props["LOOM_TEST_PROP"])
	}
}

func TestServerConfig_Address(t *testing.T) {
	addr := ServerConfig{Host: "0.0.0.0", Port: 3000}.Address()
	if addr != "0.0.0.0:3000" {
		t.Errorf("Expected 0.0.0.0:3000, got %q", addr)
	}
}
