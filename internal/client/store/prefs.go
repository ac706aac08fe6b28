package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoPreferences is returned when nothing has been saved yet.
var ErrNoPreferences = errors.New("no saved preferences")

// Preferences persists client settings across runs.
type Preferences interface {
	LoadSoundEnabled() (bool, error)
	SaveSoundEnabled(enabled bool) error
}

type prefsFile struct {
	SoundEnabled bool `json:"isSoundEnabled"`
}

// FilePreferences keeps preferences in a small JSON file.
type FilePreferences struct {
	Path string
}

// LoadSoundEnabled implements Preferences.
func (p FilePreferences) LoadSoundEnabled() (bool, error) {
	raw, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, ErrNoPreferences
	}
	if err != nil {
		return false, fmt.Errorf("read preferences: %w", err)
	}

	var f prefsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return false, fmt.Errorf("parse preferences %s: %w", p.Path, err)
	}
	return f.SoundEnabled, nil
}

// SaveSoundEnabled implements Preferences. The file is replaced atomically.
func (p FilePreferences) SaveSoundEnabled(enabled bool) error {
	raw, err := json.Marshal(prefsFile{SoundEnabled: enabled})
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.json")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	return os.Rename(tmp.Name(), p.Path)
}
