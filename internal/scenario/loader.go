package scenario

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Loader reads scenarios from a filesystem.
type Loader struct {
	fs       afero.Fs
	validate *validator.Validate
}

// NewLoader creates a loader over fs. Tests pass afero.NewMemMapFs().
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{
		fs:       fs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Load reads and validates the scenario stored at path.
func (l *Loader) Load(path string) (*Scenario, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return l.Parse(data)
}

// Parse decodes and validates YAML scenario data.
func (l *Loader) Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := l.validate.Struct(sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for i, step := range sc.Steps {
		if err := step.check(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return &sc, nil
}
