package stage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"plangrade/internal/model"
)

// ReadAssertions reads raw assertions from a JSONL file, one per line.
// Blank lines and # comments are skipped; duplicate ids are dropped.
func ReadAssertions(path string) ([]model.RawAssertion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assertions: %w", err)
	}
	defer func() { _ = f.Close() }()

	var assertions []model.RawAssertion
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var a model.RawAssertion
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return nil, fmt.Errorf("parse assertion on line %d: %w", lineNum, err)
		}
		if a.ID == "" || a.Text == "" {
			return nil, fmt.Errorf("assertion on line %d missing id or text", lineNum)
		}
		if !seen[a.ID] {
			seen[a.ID] = true
			assertions = append(assertions, a)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan assertions: %w", err)
	}
	return assertions, nil
}
