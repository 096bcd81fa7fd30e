package train

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FromYaml loads a Config from a run.yaml file, grounded on
// niceyeti-tabular's reinforcement.FromYaml pattern: a fresh viper
// instance validates the file, and the raw bytes are unmarshaled
// directly via gopkg.in/yaml.v3 over the package defaults so that
// time.Duration and other non-viper-native field types decode
// correctly. Unknown keys are errors: a typoed run.yaml must not
// silently fall back to defaults.
func FromYaml(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "train: read run.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "train: read run.yaml")
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "train: unmarshal run.yaml")
	}
	return cfg, nil
}

// WriteYaml persists cfg as a run.yaml so a later invocation can resume
// the run with the exact configuration it started with.
func (c Config) WriteYaml(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "train: marshal run.yaml")
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrap(err, "train: write run.yaml")
	}
	return nil
}
