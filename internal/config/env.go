package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Overrides are configuration values taken from the environment. Unset
// variables leave the file configuration untouched.
type Overrides struct {
	Event                       string `env:"PROGRAMAPI_EVENT"`
	SiteURL                     string `env:"PROGRAMAPI_SITE_URL"`
	Timezone                    string `env:"PROGRAMAPI_TIMEZONE"`
	Language                    string `env:"PROGRAMAPI_LANGUAGE"`
	DuplicatePolicy             string `env:"PROGRAMAPI_DUPLICATE_POLICY"`
	DanglingPolicy              string `env:"PROGRAMAPI_DANGLING_POLICY"`
	KeepSpeakersWithoutSessions *bool  `env:"PROGRAMAPI_KEEP_SPEAKERS_WITHOUT_SESSIONS"`
	Workers                     *int   `env:"PROGRAMAPI_WORKERS"`
	BaseURL                     string `env:"PRETALX_BASE_URL"`
	Token                       string `env:"PRETALX_TOKEN"`
}

// ParseOverrides reads Overrides from the process environment.
func ParseOverrides() (Overrides, error) {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return Overrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply copies every set override onto c.
func (o Overrides) Apply(c *Config) {
	setString(&c.Event, o.Event)
	setString(&c.SiteURL, o.SiteURL)
	setString(&c.Timezone, o.Timezone)
	setString(&c.Language, o.Language)
	setString(&c.Policies.Duplicates, o.DuplicatePolicy)
	setString(&c.Policies.DanglingReferences, o.DanglingPolicy)
	setString(&c.Download.BaseURL, o.BaseURL)
	setString(&c.Download.Token, o.Token)
	if o.KeepSpeakersWithoutSessions != nil {
		c.Policies.KeepSpeakersWithoutSessions = *o.KeepSpeakersWithoutSessions
	}
	if o.Workers != nil {
		c.Resolver.Workers = *o.Workers
	}
}

// ApplyEnv parses the environment and applies it onto c.
func ApplyEnv(c *Config) error {
	o, err := ParseOverrides()
	if err != nil {
		return err
	}
	o.Apply(c)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
