package memory

import (
	"context"

	"github.com/ybryx/robolease/memory/providers/structured"
	"github.com/ybryx/robolease/memory/providers/vector"
)

type Option func(*Options)

type Options struct {
	Structured structured.Store
	Vector     vector.Store
	Context    context.Context
}

func WithStructured(store structured.Store) Option {
	return func(o *Options) {
		o.Structured = store
	}
}

func WithVector(store vector.Store) Option {
	return func(o *Options) {
		o.Vector = store
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type LoadContextOption func(*LoadContextOptions)

type LoadContextOptions struct {
	AgentName      string
	IncludeGoals   bool
	IncludeBeliefs bool
	MaxMemories    int
	Context        context.Context
}

func WithLoadAgentName(agentName string) LoadContextOption {
	return func(o *LoadContextOptions) {
		o.AgentName = agentName
	}
}

func WithIncludeGoals(include bool) LoadContextOption {
	return func(o *LoadContextOptions) {
		o.IncludeGoals = include
	}
}

func WithIncludeBeliefs(include bool) LoadContextOption {
	return func(o *LoadContextOptions) {
		o.IncludeBeliefs = include
	}
}

func WithMaxMemories(max int) LoadContextOption {
	return func(o *LoadContextOptions) {
		o.MaxMemories = max
	}
}

func NewLoadContextOptions(opts ...LoadContextOption) LoadContextOptions {
	options := LoadContextOptions{
		IncludeGoals:   true,
		IncludeBeliefs: true,
		MaxMemories:    10,
		Context:        context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type WriteMemoryOption func(*WriteMemoryOptions)

type WriteMemoryOptions struct {
	MemoryKind string
	Tags       []string
	Context    context.Context
}

func WithMemoryKind(kind string) WriteMemoryOption {
	return func(o *WriteMemoryOptions) {
		o.MemoryKind = kind
	}
}

func WithTags(tags ...string) WriteMemoryOption {
	return func(o *WriteMemoryOptions) {
		o.Tags = tags
	}
}

func NewWriteMemoryOptions(opts ...WriteMemoryOption) WriteMemoryOptions {
	options := WriteMemoryOptions{
		MemoryKind: KindLongTerm,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type RecallMemoryOption func(*RecallMemoryOptions)

type RecallMemoryOptions struct {
	SessionID string
	AgentName string
	Tags      []string
	Limit     int
	Context   context.Context
}

func WithRecallSessionID(sessionID string) RecallMemoryOption {
	return func(o *RecallMemoryOptions) {
		o.SessionID = sessionID
	}
}

func WithRecallAgentName(agentName string) RecallMemoryOption {
	return func(o *RecallMemoryOptions) {
		o.AgentName = agentName
	}
}

func WithRecallTags(tags ...string) RecallMemoryOption {
	return func(o *RecallMemoryOptions) {
		o.Tags = tags
	}
}

func WithRecallLimit(limit int) RecallMemoryOption {
	return func(o *RecallMemoryOptions) {
		o.Limit = limit
	}
}

func NewRecallMemoryOptions(opts ...RecallMemoryOption) RecallMemoryOptions {
	options := RecallMemoryOptions{
		Limit:   5,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type DecayMemoryOption func(*DecayMemoryOptions)

type DecayMemoryOptions struct {
	ThresholdDays int
	MemoryKind    string
	Context       context.Context
}

func WithThresholdDays(days int) DecayMemoryOption {
	return func(o *DecayMemoryOptions) {
		o.ThresholdDays = days
	}
}

func WithDecayMemoryKind(kind string) DecayMemoryOption {
	return func(o *DecayMemoryOptions) {
		o.MemoryKind = kind
	}
}

func NewDecayMemoryOptions(opts ...DecayMemoryOption) DecayMemoryOptions {
	options := DecayMemoryOptions{
		ThresholdDays: 30,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
