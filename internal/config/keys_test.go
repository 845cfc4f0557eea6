package config

import (
	"errors"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		cfgKey  string
		want    string
		source  KeySource
		wantErr bool
	}{
		{"environment wins", "sk-ant-env", "sk-ant-config", "sk-ant-env", KeySourceEnv, false},
		{"config file", "", "sk-ant-config", "sk-ant-config", KeySourceConfig, false},
		{"unexpanded reference", "", "${SURGE_TEST_MISSING_KEY}", "", KeySourceNone, true},
		{"nothing set", "", "", "", KeySourceNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.env)
			cfg := Default()
			cfg.Anthropic.APIKey = tt.cfgKey

			key, source, err := GetAPIKey(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrNoAPIKey) {
					t.Fatalf("expected ErrNoAPIKey, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("GetAPIKey: %v", err)
			}
			if key != tt.want || source != tt.source {
				t.Errorf("got %q from %s, want %q from %s", key, source, tt.want, tt.source)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...mnop"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
