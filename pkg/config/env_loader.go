package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvVar represents a single environment variable
type EnvVar struct {
	Key   string
	Value string
}

// LoadEnvFile reads KEY=VALUE lines from path.
// Blank lines and # comments are skipped; surrounding quotes are removed.
func LoadEnvFile(path string) ([]EnvVar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("failed to close env file")
		}
	}()

	var envVars []EnvVar
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			logrus.WithFields(logrus.Fields{"path": path, "line": lineNum}).Warn("skipping malformed env line")
			continue
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		envVars = append(envVars, EnvVar{Key: key, Value: value})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return envVars, nil
}

// ApplyEnvVars sets variables that are not already present in the
// environment and returns the keys it set
func ApplyEnvVars(envVars []EnvVar) []string {
	var applied []string
	for _, env := range envVars {
		if _, exists := os.LookupEnv(env.Key); exists {
			continue
		}
		if err := os.Setenv(env.Key, env.Value); err != nil {
			logrus.WithError(err).WithField("key", env.Key).Warn("failed to set environment variable")
			continue
		}
		applied = append(applied, env.Key)
	}
	return applied
}
