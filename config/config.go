package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/guregu/null/v6"
	"github.com/spf13/viper"

	"github.com/beanbocchi/genestack/internal/model"
	"github.com/beanbocchi/genestack/pkg/sdk"
	"github.com/beanbocchi/genestack/pkg/validator"
)

const EnvPrefix = "GENESTACK"

// DefaultPath returns $HOME/.genestack/settings.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".genestack", "settings.yaml")
}

// Load reads the settings file at path, or DefaultPath when path is empty,
// applies GENESTACK_* environment overrides and validates the result. A
// missing default file yields the defaults; a missing explicit file is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && (explicit || !isNotExist(err)) {
			return nil, model.ErrConfiguration.Fmt("read " + path).Wrap(err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		nullStringHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, model.ErrConfiguration.Fmt("decode " + path).Wrap(err)
	}

	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.DefaultUser != "" {
		if _, ok := cfg.User(cfg.DefaultUser); !ok {
			return nil, model.ErrConfiguration.Fmt(fmt.Sprintf("default user %q is not defined", cfg.DefaultUser))
		}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.addSource", false)
	v.SetDefault("client.timeout", "0s")
	v.SetDefault("client.maxUploadHops", sdk.DefaultMaxUploadHops)
	v.SetDefault("client.progress", "auto")
}

// User looks up a stored identity. Aliases are case-insensitive because
// viper folds map keys to lower case.
func (c *Config) User(alias string) (User, bool) {
	user, ok := c.Users[strings.ToLower(alias)]
	return user, ok
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

var nullStringType = reflect.TypeOf(null.String{})

// nullStringHook decodes scalars into null.String; an explicit null stays invalid.
func nullStringHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != nullStringType {
		return data, nil
	}
	switch value := data.(type) {
	case nil:
		return null.String{}, nil
	case null.String:
		return value, nil
	case string:
		return null.StringFrom(value), nil
	case bool, int, int64, float64:
		return null.StringFrom(fmt.Sprint(value)), nil
	default:
		return nil, fmt.Errorf("cannot decode %T into an optional string", data)
	}
}
