package config

import (
	"fmt"
	"os"

	playground "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/quicktools/file-processor/internal/tools"
)

// LoadToolConfigs returns the builtin tool table with any YAML overrides from
// path (or $TOOLS_CONFIG_PATH) applied. A missing file is not an error; a
// file naming an unknown tool or an invalid entry is.
func LoadToolConfigs(path string) (map[tools.Tool]tools.Config, error) {
	loadEnv()

	configs := tools.BuiltinConfigs()

	if path == "" {
		path = os.Getenv("TOOLS_CONFIG_PATH")
	}
	if path == "" {
		return configs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return configs, nil
		}
		return nil, fmt.Errorf("read tool config %s: %w", path, err)
	}

	overrides := make(map[string]tools.Config)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse tool config %s: %w", path, err)
	}

	check := playground.New()
	for id, cfg := range overrides {
		tool, ok := tools.ParseTool(id)
		if !ok {
			return nil, fmt.Errorf("tool config %s: unknown tool %q", path, id)
		}
		if err := check.Struct(cfg); err != nil {
			return nil, fmt.Errorf("tool config %s: invalid entry for %q: %w", path, id, err)
		}
		configs[tool] = cfg
	}

	return configs, nil
}
