package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFulfillmentMigrationContainsWindowIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_fulfillment_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no fulfillment migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS fulfillment_requests",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_fulfillment_requests_store_window",
		"ON fulfillment_requests (store_id, window_key)",
		"CREATE TABLE IF NOT EXISTS fulfillment_line_items",
		"CHECK (requested_qty > 0)",
		"DROP TABLE IF EXISTS fulfillment_requests",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected migration files")
	}
}
