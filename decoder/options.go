package decoder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/tickwire/internal/options"
)

// DefaultMaxLength is the default decoded value limit. Inline arrays may declare
// at most half of it, tensor shapes at most all of it.
const DefaultMaxLength = 200000

// Option configures a Decoder.
type Option = options.Option[*Decoder]

// WithLogger sets the logger used to report dropped values.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	})
}

// WithMaxLength sets the limit inline array lengths and tensor sizes are checked against.
//
// Returns an error from New if n is not positive.
func WithMaxLength(n int64) Option {
	return options.New(func(d *Decoder) error {
		if n <= 0 {
			return fmt.Errorf("max length must be positive, got %d", n)
		}
		d.maxLength = n

		return nil
	})
}
