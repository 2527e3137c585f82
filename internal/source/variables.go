package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lkkmills/gee/internal/domain"
)

// LoadVariables reads a JSON array of variable specs, replacing the built-in
// set. Every spec is validated up front so a bad override fails at startup
// rather than mid-run.
func LoadVariables(path string) ([]domain.VariableSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables: %w", err)
	}
	var specs []domain.VariableSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse variables: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("variables file %s: empty variable set", path)
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}
