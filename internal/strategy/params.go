package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Params is the free-form parameter block of a strategy in the run configuration.
type Params map[string]any

var validate = validator.New()

// Decode copies params into out, a pointer to a tagged config struct, and validates it.
// Fields missing from params keep the values already set in out.
func (p Params) Decode(name string, out any) error {
	if len(p) > 0 {
		raw, err := yaml.Marshal(map[string]any(p))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to encode %s params", name)
		}

		if err := yaml.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to decode %s params", name)
		}
	}

	if err := validate.Struct(out); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid %s params", name)
	}

	return nil
}
