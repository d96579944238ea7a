package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StockPulse/internal/model"
)

// readFile decodes the JSON state file. A missing file yields os.ErrNotExist.
func readFile(path string) (model.ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ScheduleConfig{}, err
	}
	var cfg model.ScheduleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return model.ScheduleConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, cfg model.ScheduleConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// normalize repairs whatever was read from disk into a usable config.
func normalize(cfg model.ScheduleConfig) model.ScheduleConfig {
	if cfg.ChannelID != nil && *cfg.ChannelID == 0 {
		cfg.ChannelID = nil
	}
	if !model.ValidInterval(cfg.IntervalMinutes) {
		cfg.IntervalMinutes = model.DefaultIntervalMinutes
	}
	stocks := make([]string, 0, len(cfg.Stocks))
	seen := make(map[string]bool, len(cfg.Stocks))
	for _, s := range cfg.Stocks {
		s = model.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		stocks = append(stocks, s)
	}
	cfg.Stocks = stocks
	return cfg
}
