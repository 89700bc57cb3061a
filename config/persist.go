package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/classboard/classboard/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying a config file
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, 0o644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadConfigMap reads a config file into a generic map, or returns an empty
// map if the file does not exist yet
func loadConfigMap(configPath string) (map[string]interface{}, error) {
	settings := make(map[string]interface{})

	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", configPath)
	}

	if err := toml.Unmarshal(content, &settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", configPath)
	}
	return settings, nil
}

// writeConfigMap serializes a settings map to TOML and writes it in place,
// rotating backups first
func writeConfigMap(configPath string, settings map[string]interface{}) error {
	if err := createBackup(configPath); err != nil {
		return err
	}

	content, err := toml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config %s", configPath)
	}
	return nil
}

// SetJobEnabled persists a job's enabled intent to the given config file.
// jobKey is the config key under [jobs], e.g. "leaderboard" or "cache_sweep".
// The in-memory scheduler state is not touched here; the daemon picks the
// change up through the config watcher.
func SetJobEnabled(configPath, jobKey string, enabled bool) error {
	settings, err := loadConfigMap(configPath)
	if err != nil {
		return err
	}

	jobs, ok := settings["jobs"].(map[string]interface{})
	if !ok {
		jobs = make(map[string]interface{})
		settings["jobs"] = jobs
	}
	job, ok := jobs[jobKey].(map[string]interface{})
	if !ok {
		job = make(map[string]interface{})
		jobs[jobKey] = job
	}
	job["enabled"] = enabled

	return writeConfigMap(configPath, settings)
}
