package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[owner]
# Identifier every journal record is scoped to. May also be set with JOURNAL_OWNER.
id = ""

[database]
# SQLite database file. Defaults to journal.db in the config directory.
path = ""

[log]
# Log level: debug, info, warn, error
level = "info"
# Write human-readable logs to stderr
console = true
# Write JSON logs to a rotating file
file = false
file_path = ""
# Rotation: size in megabytes, number of backups, age in days
max_size = 20
max_backups = 5
max_age = 30

[audit]
# Record imports, edits, accepts and deletes as JSON lines
enabled = true
dir = ""

[import]
# Timezone IBKR trade timestamps are reported in
timezone = "America/New_York"
# Derive a hash identity for executions without a broker id so re-imports are deduplicated
fingerprint_missing_ids = true

[ui]
# Enable colored output
color_enabled = true
# Date format used in tables
date_format = "2006-01-02 15:04"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
