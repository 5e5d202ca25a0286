package live

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Intent is an order that was decided but whose completion is not yet
// confirmed. Intents are written before submission so a crash between
// submit and journal leaves a trail to reconcile against.
type Intent struct {
	Tag       string    `yaml:"tag"`
	Symbol    string    `yaml:"symbol"`
	Side      string    `yaml:"side"`
	Quantity  int64     `yaml:"quantity"`
	Price     string    `yaml:"price"`
	Reason    string    `yaml:"reason"`
	CreatedAt time.Time `yaml:"created_at"`
}

// State is the crash-recovery snapshot persisted between cycles.
type State struct {
	TradingDate time.Time `yaml:"trading_date"`
	Intents     []Intent  `yaml:"intents,omitempty"`
}

// SaveState writes atomically: temp file then rename, so a crash mid-write
// never leaves a torn snapshot.
func SaveState(path string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(path), ".state.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// LoadState reads a snapshot; ok=false when none exists yet.
func LoadState(path string) (State, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("parse state %s: %w", path, err)
	}
	return st, true, nil
}
