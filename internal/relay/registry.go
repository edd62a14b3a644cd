// Package relay holds the registry of configured outbound mail relays.
//
// The registry is constructed once at process start from decoded
// configuration and is immutable afterwards, so lookups need no locking.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Transport kinds a relay config can select.
const (
	KindSMTP   = "smtp"
	KindSES    = "ses"
	KindStdout = "stdout"
)

var (
	// ErrNotFound indicates a lookup for an unknown relay identifier.
	ErrNotFound = errors.New("relay not found")

	// ErrInvalidConfig indicates the loaded relay set is empty or malformed.
	ErrInvalidConfig = errors.New("invalid relay configuration")
)

// Config describes one outbound mail relay.
type Config struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name,omitempty" yaml:"name"`
	Host      string `json:"host,omitempty" yaml:"host"`
	Port      int    `json:"port,omitempty" yaml:"port"`
	Secure    bool   `json:"secure,omitempty" yaml:"secure"`
	Username  string `json:"username,omitempty" yaml:"username"`
	Password  string `json:"password,omitempty" yaml:"password"`
	From      string `json:"from,omitempty" yaml:"from"`
	Kind      string `json:"kind,omitempty" yaml:"kind"`
	Region    string `json:"region,omitempty" yaml:"region"`
	IsDefault bool   `json:"isDefault" yaml:"is_default"`
}

// Sender returns the identity used on the From header when the message
// does not carry an explicit sender: the configured from address, falling
// back to the authenticated account.
func (c Config) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// Registry is the immutable set of loaded relay configs.
type Registry struct {
	configs   []Config
	byID      map[string]int
	defaultID string
}

// Load validates and normalizes the raw config list into a Registry.
//
// Normalization: if no entry is marked default, the first entry in load
// order is promoted; if several are marked, the first marked entry wins
// and the flag is cleared on the rest. Exactly one entry is default
// after Load returns.
func Load(configs []Config) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no relays configured", ErrInvalidConfig)
	}

	byID := make(map[string]int, len(configs))
	for i := range configs {
		c := &configs[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("%w: relay at index %d has no id", ErrInvalidConfig, i)
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate relay id %q", ErrInvalidConfig, c.ID)
		}
		if c.Kind == "" {
			c.Kind = KindSMTP
		}
		switch c.Kind {
		case KindSMTP:
			if c.Host == "" {
				return nil, fmt.Errorf("%w: relay %q has no host", ErrInvalidConfig, c.ID)
			}
			if c.Port == 0 {
				c.Port = 587
			}
		case KindSES:
			if c.Region == "" {
				return nil, fmt.Errorf("%w: relay %q has no region", ErrInvalidConfig, c.ID)
			}
		case KindStdout:
			// Nothing to validate; dev transport.
		default:
			return nil, fmt.Errorf("%w: relay %q has unknown kind %q", ErrInvalidConfig, c.ID, c.Kind)
		}
		byID[c.ID] = i
	}

	defaultID := ""
	for i := range configs {
		if !configs[i].IsDefault {
			continue
		}
		if defaultID == "" {
			defaultID = configs[i].ID
		} else {
			configs[i].IsDefault = false
		}
	}
	if defaultID == "" {
		configs[0].IsDefault = true
		defaultID = configs[0].ID
		slog.Info("no default relay configured, promoting first entry", "relay", defaultID)
	}

	return &Registry{configs: configs, byID: byID, defaultID: defaultID}, nil
}

// Lookup returns the config for the given id, or the default config when
// id is empty.
func (r *Registry) Lookup(id string) (Config, error) {
	if id == "" {
		return r.Default(), nil
	}
	i, ok := r.byID[id]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return r.configs[i], nil
}

// Default returns the config marked default.
func (r *Registry) Default() Config {
	i := r.byID[r.defaultID]
	return r.configs[i]
}

// All returns a copy of the loaded config set in load order.
func (r *Registry) All() []Config {
	out := make([]Config, len(r.configs))
	copy(out, r.configs)
	return out
}

// Redacted returns the config set with credentials masked, suitable for
// returning to API callers.
func (r *Registry) Redacted() []Config {
	out := r.All()
	for i := range out {
		if out[i].Password != "" {
			out[i].Password = "[redacted]"
		}
	}
	return out
}
