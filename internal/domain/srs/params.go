package srs

import (
	"time"

	"github.com/phrazzld/kotoba-api/internal/domain"
)

// DefaultWeights are the published FSRS-5 default weights w0..w18.
var DefaultWeights = [domain.WeightCount]float64{
	0.4072, 1.1829, 3.1262, 15.4722, 7.2102,
	0.5316, 1.0651, 0.0234, 1.616, 0.1544,
	1.0824, 1.9813, 0.0953, 0.2975, 2.2042,
	0.2407, 2.9466, 0.5034, 0.6567,
}

// Defaults for the scheduler.
const (
	DefaultRequestRetention = 0.9
	DefaultMaximumInterval  = 36500
	DefaultNewAgainDelay    = time.Minute
	DefaultAgainDelay       = 5 * time.Minute
)

// Params defines all configurable parameters for the scheduler.
type Params struct {
	// Scheduler is the weight set seeded into a learner's progress on
	// first use. Rescheduling always uses the learner's persisted copy.
	Scheduler domain.SchedulerParams

	// NewAgainDelay is how soon a New card graded bad comes back.
	NewAgainDelay time.Duration

	// AgainDelay is how soon any other card graded bad comes back.
	AgainDelay time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a
// new Params instance. Zero values keep the default.
type ParamsConfig struct {
	RequestRetention float64
	MaximumInterval  int
	NewAgainDelay    time.Duration
	AgainDelay       time.Duration
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		Scheduler:     DefaultSchedulerParams(),
		NewAgainDelay: DefaultNewAgainDelay,
		AgainDelay:    DefaultAgainDelay,
	}
}

// NewParams creates Params from the defaults with cfg applied on top.
func NewParams(cfg ParamsConfig) (*Params, error) {
	p := NewDefaultParams()
	if cfg.RequestRetention != 0 {
		p.Scheduler.RequestRetention = cfg.RequestRetention
	}
	if cfg.MaximumInterval != 0 {
		p.Scheduler.MaximumInterval = cfg.MaximumInterval
	}
	if cfg.NewAgainDelay != 0 {
		p.NewAgainDelay = cfg.NewAgainDelay
	}
	if cfg.AgainDelay != 0 {
		p.AgainDelay = cfg.AgainDelay
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the weight set and the delays.
func (p *Params) Validate() error {
	if err := p.Scheduler.Validate(); err != nil {
		return err
	}
	if p.NewAgainDelay <= 0 || p.AgainDelay <= 0 {
		return domain.NewValidationError("again_delay", "must be positive", domain.ErrInvalidSchedulerParams)
	}
	return nil
}

// DefaultSchedulerParams returns a fresh copy of the default weight set.
func DefaultSchedulerParams() domain.SchedulerParams {
	return domain.SchedulerParams{
		Weights:          append([]float64(nil), DefaultWeights[:]...),
		RequestRetention: DefaultRequestRetention,
		MaximumInterval:  DefaultMaximumInterval,
	}
}
