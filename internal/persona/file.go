package persona

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-engine/internal/model"
)

type personaFile struct {
	Personas []model.Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file with a top-level "personas" list.
// Every persona is validated; the first invalid one fails the load.
func LoadFile(path string) ([]model.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "persona: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a personas YAML document.
func Parse(data []byte) ([]model.Persona, error) {
	var f personaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "persona: parse yaml")
	}
	if len(f.Personas) == 0 {
		return nil, eris.New("persona: file contains no personas")
	}
	for i, p := range f.Personas {
		if err := Validate(p); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("persona: entry %d (%q)", i, p.Name))
		}
	}
	return f.Personas, nil
}
