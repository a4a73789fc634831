package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ReadJSONFileOrDefault reads a JSON file into target.
// A missing or unparsable file leaves target untouched and reports false.
func ReadJSONFileOrDefault(filePath string, target interface{}) (bool, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	if len(data) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, nil
	}
	return true, nil
}

// WriteJSONFile atomically writes data as indented JSON
func WriteJSONFile(filePath string, data interface{}, perm os.FileMode) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(filePath, jsonData, perm)
}
