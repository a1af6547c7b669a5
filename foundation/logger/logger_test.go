package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/logger"
)

func Test_New(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	log, err := logger.New("TEST", path)
	if err != nil {
		t.Fatalf("Should be able to construct a logger: %v", err)
	}

	log.Infow("startup", "status", "testing")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Should be able to read the log: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("Should write json log entries: %v: %s", err, data)
	}

	if entry["service"] != "TEST" || entry["status"] != "testing" || entry["msg"] != "startup" {
		t.Fatalf("Should get the service and fields in the entry: %v", entry)
	}
}
