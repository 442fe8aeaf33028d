package main

import (
	"testing"

	"tindahan/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestNewModelClientSelectsProvider(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{name: "default", cfg: config.Config{}, want: "ollama"},
		{name: "ollama", cfg: config.Config{LLMProvider: "ollama", OllamaBaseURL: "http://localhost:11434"}, want: "ollama"},
		{name: "gemini", cfg: config.Config{LLMProvider: "gemini", GeminiAPIKey: "key"}, want: "gemini"},
		{name: "gemini without key", cfg: config.Config{LLMProvider: "gemini"}, wantErr: true},
		{name: "unknown", cfg: config.Config{LLMProvider: "openai"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := newModelClient(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Name() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, client.Name())
			}
		})
	}
}
