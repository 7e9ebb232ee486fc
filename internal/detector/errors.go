package detector

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/leechkit/internal/pbd"
)

// ErrInvalidConfig is returned when a Config fails validation. It is raised
// before any review data is looked at.
var ErrInvalidConfig = errors.New("detector: invalid config")

// ErrInvalidStability is returned when a trial is scored with a stability
// that is not a positive number, such as a review logged before the memory
// model was enabled. It wraps pbd.ErrInvalidProbability: such a trial has no
// meaningful recall probability.
var ErrInvalidStability = fmt.Errorf("detector: invalid stability: %w", pbd.ErrInvalidProbability)
