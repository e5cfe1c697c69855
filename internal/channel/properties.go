package channel

import (
	"github.com/spf13/cast"
	"strings"
	"time"
)

// Properties gives typed access to the options map of one channel. Keys are
// matched without regard to case since viper lowercases map keys.
type Properties struct {
	channel string
	values  map[string]any
}

func NewProperties(channel string, options map[string]any) *Properties {
	values := make(map[string]any, len(options))
	for k, v := range options {
		values[strings.ToLower(k)] = v
	}
	return &Properties{channel: channel, values: values}
}

func (p *Properties) lookup(key string) (any, bool) {
	v, ok := p.values[strings.ToLower(key)]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (p *Properties) Has(key string) bool {
	_, ok := p.lookup(key)
	return ok
}

func (p *Properties) String(key, def string) (string, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def, &ConfigurationError{Channel: p.channel, Key: key, Err: err}
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func (p *Properties) Int(key string, def int) (int, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def, &ConfigurationError{Channel: p.channel, Key: key, Err: err}
	}
	return n, nil
}

func (p *Properties) Bool(key string, def bool) (bool, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def, &ConfigurationError{Channel: p.channel, Key: key, Err: err}
	}
	return b, nil
}

// Duration accepts Go duration strings; bare numbers are taken as seconds.
func (p *Properties) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def, &ConfigurationError{Channel: p.channel, Key: key, Err: err}
	}
	return d, nil
}
