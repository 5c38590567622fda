package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := GetLogger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestWithFieldsChaining(t *testing.T) {
	log := GetLogger()
	entry := log.WithComponent("aggregator").WithFields(Fields{"asset": "BTC"})
	if v := entry.Entry.Data["component"]; v != "aggregator" {
		t.Fatalf("component field lost after chaining: %v", entry.Entry.Data)
	}
	if v := entry.Entry.Data["asset"]; v != "BTC" {
		t.Fatalf("asset field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := New()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := New()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}
