// Package settings persists the bot's runtime schedule (channel, watch-list,
// interval) in a small JSON file that chat commands edit.
package settings

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"StockPulse/internal/model"
)

var (
	ErrDuplicateStock = errors.New("stock already in watch-list")
	ErrUnknownStock   = errors.New("stock not in watch-list")
	ErrEmptySymbol    = errors.New("empty symbol")
)

// Store reads and writes the schedule file. Reads go to disk every time so
// edits made between scheduler cycles are picked up.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore creates a Store backed by path. The file is created on first save.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns the stored config, or defaults when the file is missing or unreadable.
func (s *Store) Load() model.ScheduleConfig {
	cfg, err := readFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("schedule file unreadable, using defaults", "path", s.path, "error", err)
		}
		return model.DefaultScheduleConfig()
	}
	return normalize(cfg)
}

// Save writes cfg as-is after normalization.
func (s *Store) Save(cfg model.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(s.path, normalize(cfg))
}

// SetChannel makes id the target of scheduled updates.
func (s *Store) SetChannel(id int64) error {
	return s.update(func(cfg *model.ScheduleConfig) error {
		cfg.ChannelID = &id
		return nil
	})
}

// AddStock appends symbol to the watch-list and returns its canonical form.
func (s *Store) AddStock(symbol string) (string, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return "", ErrEmptySymbol
	}
	return sym, s.update(func(cfg *model.ScheduleConfig) error {
		if cfg.Watching(sym) {
			return ErrDuplicateStock
		}
		cfg.Stocks = append(cfg.Stocks, sym)
		return nil
	})
}

// RemoveStock drops symbol from the watch-list and returns its canonical form.
func (s *Store) RemoveStock(symbol string) (string, error) {
	sym := model.NormalizeSymbol(symbol)
	return sym, s.update(func(cfg *model.ScheduleConfig) error {
		for i, st := range cfg.Stocks {
			if st == sym {
				cfg.Stocks = append(cfg.Stocks[:i], cfg.Stocks[i+1:]...)
				return nil
			}
		}
		return ErrUnknownStock
	})
}

// SetInterval stores a new update interval; it must be one of the presets.
func (s *Store) SetInterval(minutes int) error {
	if !model.ValidInterval(minutes) {
		return model.ErrInvalidInterval
	}
	return s.update(func(cfg *model.ScheduleConfig) error {
		cfg.IntervalMinutes = minutes
		return nil
	})
}

func (s *Store) update(fn func(cfg *model.ScheduleConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.Load()
	if err := fn(&cfg); err != nil {
		return err
	}
	return writeFile(s.path, cfg)
}
