// Package stage reads and writes JSON-Lines stage files: one atomic unit per
// line. Files are written to a temp path and renamed into place, so a
// resuming process never observes a partially written stage.
package stage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"plangrade/internal/model"
)

// Path returns the canonical stage file path for a stage number
func Path(dir string, stageNum int) string {
	return filepath.Join(dir, fmt.Sprintf("stage-%04d.jsonl", stageNum))
}

// Write persists units as JSONL with write-to-temp-then-rename semantics
func Write(path string, units []model.AtomicUnit) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create stage dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp stage: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, unit := range units {
		if err = enc.Encode(unit); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode unit %s: %w", unit.ID, err)
		}
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush stage: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close stage: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename stage: %w", err)
	}
	return nil
}

// Read loads all units from one stage file
func Read(path string) ([]model.AtomicUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stage: %w", err)
	}
	defer func() { _ = f.Close() }()

	var units []model.AtomicUnit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var unit model.AtomicUnit
		if err := json.Unmarshal(line, &unit); err != nil {
			return nil, fmt.Errorf("parse stage line: %w", err)
		}
		units = append(units, unit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stage: %w", err)
	}
	return units, nil
}

// ReadAll loads the units from every stage file in a directory, in stage order
func ReadAll(dir string) ([]model.AtomicUnit, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "stage-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}

	var all []model.AtomicUnit
	for _, path := range matches {
		units, err := Read(path)
		if err != nil {
			return nil, err
		}
		all = append(all, units...)
	}
	return all, nil
}
