package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration file. Flags and environment
// variables take precedence over anything set here.
type File struct {
	APIURL    string        `yaml:"api_url"`
	Timeout   time.Duration `yaml:"timeout"`
	StateDir  string        `yaml:"state_dir"`
	Ephemeral *bool         `yaml:"ephemeral"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, goerr.New("configuration file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "configuration file not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read configuration file", goerr.V("path", path))
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML configuration", goerr.V("path", path))
	}
	return &f, nil
}

// Apply copies file values into the configs for every flag that was not set
// on the command line or through the environment.
func (f *File) Apply(isSet func(flag string) bool, api *API, state *State, logger *Logger) {
	set := func(flag string, value string, dst *string) {
		if value != "" && !isSet(flag) {
			*dst = value
		}
	}
	set("api-url", f.APIURL, &api.URL)
	set("state-dir", f.StateDir, &state.Dir)
	set("log-level", f.Log.Level, &logger.Level)
	set("log-format", f.Log.Format, &logger.Format)
	set("log-file", f.Log.File, &logger.File)
	if f.Timeout != 0 && !isSet("timeout") {
		api.Timeout = f.Timeout
	}
	if f.Ephemeral != nil && !isSet("ephemeral") {
		state.Ephemeral = *f.Ephemeral
	}
}

// LoadDotenv loads each existing dotenv file into the process environment.
// Variables already present in the environment are left untouched.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return goerr.Wrap(err, "failed to load dotenv file", goerr.V("path", p))
		}
	}
	return nil
}
