package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TokenState stores the identity token between CLI runs.
type TokenState struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

func Load(path string) (TokenState, error) {
	var st TokenState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read token state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse token state failed: %w", err)
	}
	return st, nil
}

func Save(path string, st TokenState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token state failed: %w", err)
	}
	return nil
}
