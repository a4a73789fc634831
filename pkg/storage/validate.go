package storage

import "fmt"

func validate(profile string, record *Record) error {
	if profile == "" {
		return fmt.Errorf("profile cannot be empty")
	}
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	return nil
}
