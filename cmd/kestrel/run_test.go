package main

import (
	"testing"

	"github.com/kestrelci/kestrel/internal/config"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"d2f1a9c8-1111-2222-3333-444455556666", "d2f1a9c8"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.Actions = map[string]string{"actions/checkout@v4": "true"}

	if got, err := getConfigValue(cfg, "defaults.shell"); err != nil || got != "sh" {
		t.Errorf("defaults.shell = %q, %v; want sh", got, err)
	}
	if got, err := getConfigValue(cfg, "actions/checkout@v4"); err != nil || got != "true" {
		t.Errorf("action mapping = %q, %v; want true", got, err)
	}
	if _, err := getConfigValue(cfg, "nope"); err == nil {
		t.Error("unknown key should error")
	}
}

func TestContainerFactoryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Docker.Enabled = false
	if containerFactory(cfg) != nil {
		t.Error("factory should be nil when docker is disabled")
	}
}
