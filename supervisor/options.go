package supervisor

import (
	"context"

	"github.com/ybryx/robolease/generator"
	"github.com/ybryx/robolease/memory"
)

type Option func(*Options)

type Options struct {
	Router        generator.Generator
	Specialists   map[string]Specialist
	Memory        memory.Manager
	MaxIterations int
	Context       context.Context
}

func WithRouter(router generator.Generator) Option {
	return func(o *Options) {
		o.Router = router
	}
}

func WithSpecialist(name string, specialist Specialist) Option {
	return func(o *Options) {
		o.Specialists[name] = specialist
	}
}

func WithMemory(manager memory.Manager) Option {
	return func(o *Options) {
		o.Memory = manager
	}
}

func WithMaxIterations(max int) Option {
	return func(o *Options) {
		o.MaxIterations = max
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Specialists:   map[string]Specialist{},
		MaxIterations: 10,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
