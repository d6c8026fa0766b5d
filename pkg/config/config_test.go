package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "geoguide.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Location.Provider != "push" {
					t.Errorf("expected default provider 'push', got '%s'", cfg.Location.Provider)
				}
				if cfg.Location.MinDisplacement.Meters() != 1 {
					t.Errorf("expected min displacement 1m, got %v", cfg.Location.MinDisplacement)
				}
				if !cfg.Location.HighAccuracy {
					t.Error("expected high accuracy by default")
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "provider: push") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: push, mock") {
					t.Error("config file missing provider options comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("location:\n  provider: mock\n  min_displacement: 5m\n  permission_timeout: 1m\ncatalog:\n  page_size: 10\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Location.Provider != "mock" {
					t.Errorf("expected provider 'mock', got '%s'", cfg.Location.Provider)
				}
				if cfg.Location.MinDisplacement.Meters() != 5 {
					t.Errorf("expected 5m, got %v", cfg.Location.MinDisplacement)
				}
				if time.Duration(cfg.Location.PermissionTimeout) != time.Minute {
					t.Errorf("expected 1m timeout, got %v", time.Duration(cfg.Location.PermissionTimeout))
				}
				if cfg.Catalog.PageSize != 10 {
					t.Errorf("expected page size 10, got %d", cfg.Catalog.PageSize)
				}
				// Untouched values keep their defaults
				if cfg.Catalog.H3Resolution != 7 {
					t.Errorf("expected default h3 resolution 7, got %d", cfg.Catalog.H3Resolution)
				}
			},
		},
		{
			name: "InvalidProvider",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("location:\n  provider: satellite\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "FileSourceWithoutPath",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("catalog:\n  source: file\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if tt.expectedError {
				return
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "geoguide.yaml")
	t.Setenv("GEOGUIDE_ADDRESS", "0.0.0.0:9000")
	t.Setenv("GEOGUIDE_PLAYBACK_ENABLED", "false")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Address != "0.0.0.0:9000" {
		t.Errorf("expected env address, got %q", cfg.Server.Address)
	}
	if cfg.Playback.Enabled {
		t.Error("expected playback disabled from env")
	}
}

func TestGenerateDefault_KeepsExisting(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "geoguide.yaml")
	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	if err := os.WriteFile(configPath, []byte("server:\n  address: custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	content, _ := os.ReadFile(configPath)
	if !strings.Contains(string(content), "custom") {
		t.Error("GenerateDefault overwrote an existing file")
	}
}
