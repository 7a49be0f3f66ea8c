package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		opts Options
		want logrus.Level
	}{
		{Options{}, logrus.WarnLevel},
		{Options{Level: "info"}, logrus.InfoLevel},
		{Options{Level: "nonsense"}, logrus.WarnLevel},
		{Options{Level: "debug"}, logrus.DebugLevel},
	}
	for _, tt := range tests {
		log := New(&bytes.Buffer{}, tt.opts)
		if log.GetLevel() != tt.want {
			t.Errorf("%+v: expected %v, got %v", tt.opts, tt.want, log.GetLevel())
		}
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Format: "json", Level: "info"})
	log.WithField("component", "session").Info("session persisted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "session persisted" || entry["component"] != "session" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("expected ts field")
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{})
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info must be filtered at the default level")
	}
	if !strings.Contains(out, "level=warning") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}
