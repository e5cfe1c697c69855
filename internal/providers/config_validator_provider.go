package providers

import (
	"aprsd/internal/structures"
	"errors"
	"fmt"
	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate checks global settings. Per-channel options are checked by the
// channel constructors so that one bad channel does not stop the others.
func (v *CnfValidator) Validate() error {
	vd := validate.Struct(v.conf)
	if !vd.Validate() {
		return vd.Errors
	}

	seen := make(map[string]bool, len(v.conf.Channels))
	for i, ch := range v.conf.Channels {
		if ch.Id == "" {
			return fmt.Errorf("channels[%d]: missing id", i)
		}
		if seen[ch.Id] {
			return fmt.Errorf("channels[%d]: duplicate id %q", i, ch.Id)
		}
		seen[ch.Id] = true
	}
	if v.conf.DupCheck.Window < 0 {
		return errors.New("dupCheck.window must not be negative")
	}
	if v.conf.History.Enabled && v.conf.History.Path == "" {
		return errors.New("history.path is required when history is enabled")
	}
	return nil
}
