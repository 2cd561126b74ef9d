package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged outcome generation.
// Every outcome is logged at debug level; fallback outcomes are logged at warn
// level so they are never indistinguishable from a real roll of all ones.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each outcome to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("dice: NewLoggedRoller precondition violated: src and logger must be non-nil")
	}
	return &Roller{src: src, logger: logger}
}

// RollRandom rolls count dice and logs the outcome.
//
// Postcondition: Returns the Outcome or ErrInvalidInput.
func (r *Roller) RollRandom(count int) (Outcome, error) {
	o, err := RollRandom(count, r.src)
	if err != nil {
		return Outcome{}, err
	}
	r.log(o)
	return o, nil
}

// RollFromTotal derives faces for a forced total and logs the outcome.
//
// Postcondition: Returns the Outcome or ErrInvalidInput.
func (r *Roller) RollFromTotal(count, total int) (Outcome, error) {
	o, err := RollFromTotal(count, total, r.src)
	if err != nil {
		r.logger.Debug("manual roll rejected",
			zap.Int("count", count),
			zap.Int("total", total),
			zap.Error(err),
		)
		return Outcome{}, err
	}
	r.log(o)
	return o, nil
}

func (r *Roller) log(o Outcome) {
	fields := []zap.Field{
		zap.Ints("dice", o.Faces()),
		zap.Int("total", o.Total()),
		zap.Bool("manual", o.Manual),
	}
	if o.Fallback {
		r.logger.Warn("dice roll fell back to all ones", append(fields, zap.Bool("fallback", true))...)
		return
	}
	r.logger.Debug("dice roll", fields...)
}
