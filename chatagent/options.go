package chatagent

import "context"

type Option func(*Options)

type Options struct {
	Window       int
	TopK         int
	SystemPrompt string
	Context      context.Context
}

// WithWindow bounds how many recent turns are replayed into the prompt.
func WithWindow(window int) Option {
	return func(o *Options) {
		o.Window = window
	}
}

func WithTopK(topK int) Option {
	return func(o *Options) {
		o.TopK = topK
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Window:  12,
		TopK:    3,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
