package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"LuminCredit/internal/model"
)

// LoadUsers reads the user array from a JSON file. Returns no users if the file doesn't exist.
func LoadUsers(filePath string) ([]*model.UserFinancialRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var users []*model.UserFinancialRecord
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return users, nil
}

// SaveUsers writes the user array next to filePath and renames it into place.
func SaveUsers(filePath string, users []*model.UserFinancialRecord) error {
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
