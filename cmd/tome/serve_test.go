package main

import (
	"testing"

	"github.com/pvolkov/tome/internal/config"
)

func TestListenAddress(t *testing.T) {
	fromConfig := config.ServerCfg{Host: "0.0.0.0", Port: 9090}

	tests := []struct {
		name             string
		hostSet, portSet bool
		srv              config.ServerCfg
		wantHost         string
		wantPort         string
	}{
		{"config applies when flags untouched", false, false, fromConfig, "0.0.0.0", "9090"},
		{"explicit flags win over config", true, true, fromConfig, "127.0.0.1", "8080"},
		{"host flag only", true, false, fromConfig, "127.0.0.1", "9090"},
		{"empty config falls back to flag defaults", false, false, config.ServerCfg{}, "127.0.0.1", "8080"},
	}
	for _, tt := range tests {
		host, port := listenAddress("127.0.0.1", "8080", tt.hostSet, tt.portSet, tt.srv)
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("%s: got %s:%s, want %s:%s", tt.name, host, port, tt.wantHost, tt.wantPort)
		}
	}
}
