package am

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/htsmatch/errors"
)

// EnvPrefix prefixes every environment variable read by htsmatch.
const EnvPrefix = "HTSMATCH"

// ProjectConfigName is the file searched for from the working directory upward.
const ProjectConfigName = "htsmatch.toml"

// Load builds the configuration from all sources. configFile may be empty.
func Load(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// NewViper returns a viper instance with defaults, environment bindings and
// every config file merged in precedence order.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindLegacyEnvVars(v)

	SetDefaults(v)

	for _, path := range ConfigPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		if err := mergeFile(v, configFile); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// LoadWithViper unmarshals configuration from a prepared viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal config"), errors.ErrConfig)
	}
	return &config, nil
}

// LoadFromFile loads defaults plus a single file, ignoring the environment.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if err := mergeFile(v, configPath); err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadDotEnv loads KEY=value files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to load %v", existing), errors.ErrConfig)
	}
	return nil
}

func mergeFile(v *viper.Viper, path string) error {
	fileViper := viper.New()
	fileViper.SetConfigFile(path)
	fileViper.SetConfigType("toml")

	if err := fileViper.ReadInConfig(); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to read config file %s", path), errors.ErrConfig)
	}
	if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to merge config file %s", path), errors.ErrConfig)
	}
	return nil
}

// ConfigPaths lists config files lowest precedence first.
func ConfigPaths() []string {
	paths := []string{"/etc/htsmatch/config.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".htsmatch", "config.toml"))
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}
	return paths
}

// findProjectConfig walks up from the working directory looking for htsmatch.toml
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

var durationType = reflect.TypeOf(time.Duration(0))

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// secondsToDurationHook accepts bare numbers as seconds, so RATE_LIMIT_DELAY=1.5
// and rate_limit_delay = 2 both work alongside "1500ms".
func secondsToDurationHook(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != durationType {
		return data, nil
	}

	switch val := data.(type) {
	case string:
		secs, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return data, nil
		}
		return seconds(secs), nil
	case float64:
		return seconds(val), nil
	case int:
		return seconds(float64(val)), nil
	case int64:
		return seconds(float64(val)), nil
	}
	return data, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
