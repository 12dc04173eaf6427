package saleshelper

import "context"

type Option func(*Options)

type Options struct {
	TopK        int
	MaxDistance float64
	Context     context.Context
}

func WithTopK(topK int) Option {
	return func(o *Options) {
		o.TopK = topK
	}
}

// WithMaxDistance sets the relevance cutoff: matches farther than this are
// still reported but excluded from recommendation synthesis.
func WithMaxDistance(max float64) Option {
	return func(o *Options) {
		o.MaxDistance = max
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		TopK:        5,
		MaxDistance: 0.6,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
