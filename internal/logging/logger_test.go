package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v (%q)", err, sc.Text())
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sessiond.log")

	logger, err := New(path, "test", zapcore.InfoLevel)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	entries := readEntries(t, path)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "hello" || entry["session"] != "test" {
		t.Errorf("entry = %v", entry)
	}
	for _, key := range []string{"ts", "pid", "caller"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("entry has no %s field", key)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	tests := []struct {
		name  string
		level zapcore.Level
		want  int
	}{
		{"debug keeps debug", zapcore.DebugLevel, 2},
		{"info drops debug", zapcore.InfoLevel, 1},
		{"warn drops both", zapcore.WarnLevel, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sessiond.log")
			logger, err := New(path, "test", tt.level)
			if err != nil {
				t.Fatal(err)
			}
			logger.Debug("detail")
			logger.Info("summary")
			_ = logger.Sync()

			if got := len(readEntries(t, path)); got != tt.want {
				t.Errorf("entries = %d, want %d", got, tt.want)
			}
		})
	}
}
