package cremi

import (
	"log/slog"
	"math"

	"github.com/jamesainslie/go-cremi/metrics"
)

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	matchingThreshold float64
	cleftThreshold    float64
	borderThreshold   float64
	metrics           *metrics.Recorder
	logger            *slog.Logger
}

func defaultConfig() config {
	return config{
		matchingThreshold: math.NaN(),
		cleftThreshold:    math.NaN(),
		logger:            slog.Default(),
	}
}

// WithMatchingThreshold sets the maximum distance in nm between matched
// synaptic partner pairs. Required.
func WithMatchingThreshold(nm float64) Option {
	return func(c *config) {
		c.matchingThreshold = nm
	}
}

// WithCleftThreshold sets the distance in nm beyond which a cleft voxel
// counts as a false positive or false negative. Required.
func WithCleftThreshold(nm float64) Option {
	return func(c *config) {
		c.cleftThreshold = nm
	}
}

// WithBorderThreshold sets the distance in nm around neuron borders that is
// excluded from VOI and adapted Rand (default: 0, no masking).
func WithBorderThreshold(nm float64) Option {
	return func(c *config) {
		c.borderThreshold = nm
	}
}

// WithMetrics records timings and scores in r (default: none).
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = r
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
