package config

import (
	"time"

	"github.com/guregu/null/v6"
)

type Config struct {
	Log    Log    `yaml:"log" mapstructure:"log" validate:"required"`
	Client Client `yaml:"client" mapstructure:"client" validate:"required"`

	// Identities
	DefaultUser string          `yaml:"defaultUser" mapstructure:"defaultUser"`
	Users       map[string]User `yaml:"users" mapstructure:"users" validate:"dive"`
}

type Log struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=auto json text"`
	AddSource bool   `yaml:"addSource" mapstructure:"addSource"`
}

type Client struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	MaxUploadHops int           `yaml:"maxUploadHops" mapstructure:"maxUploadHops" validate:"gte=1"`
	Progress      string        `yaml:"progress" mapstructure:"progress" validate:"oneof=auto tty dots none"`
}

// User is a stored identity. A missing password is asked for interactively.
type User struct {
	Email    string      `yaml:"email" mapstructure:"email" validate:"required,email"`
	Host     string      `yaml:"host" mapstructure:"host" validate:"required,serverurl"`
	Password null.String `yaml:"password" mapstructure:"password"`
}
