package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadTemplate reads the template for a mode/strategy pair from
// strategy/prompts/<mode>/<strategy>.tmpl relative to the working directory.
func LoadTemplate(mode, strategy string) (string, error) {
	templatePath := filepath.Join("strategy", "prompts", mode, strategy+".tmpl")

	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to load template %s: %w", templatePath, err)
	}

	return string(content), nil
}

// ListStrategies names every .tmpl file available for a mode.
func ListStrategies(mode string) ([]string, error) {
	promptsDir := filepath.Join("strategy", "prompts", mode)

	if _, err := os.Stat(promptsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("prompts directory not found for mode %s", mode)
	}

	entries, err := os.ReadDir(promptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory: %w", err)
	}

	var strategies []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmpl") {
			strategies = append(strategies, strings.TrimSuffix(entry.Name(), ".tmpl"))
		}
	}

	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies found in %s", promptsDir)
	}

	return strategies, nil
}
