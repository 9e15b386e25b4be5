package jsonapi

// Option configures a Query or a QueryBuilder.
type Option func(*options)

type options struct {
	macros   *MacroRegistry
	events   *EventBus
	resolver Resolver
	logger   Logger
	gate     GateFunc
	locale   string
}

func applyOptions(opts []Option) *options {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = NopLogger{}
	}

	return o
}

// WithMacros sets the registry used by Macro.
func WithMacros(registry *MacroRegistry) Option {
	return func(o *options) {
		o.macros = registry
	}
}

// WithEventBus sets the bus receiving query events.
func WithEventBus(bus *EventBus) Option {
	return func(o *options) {
		o.events = bus
	}
}

// WithResolver sets the resolver attached to every ResponseModel for relationship resolution.
func WithResolver(resolver Resolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithGate sets the gate applied before mapping.
func WithGate(gate GateFunc) Option {
	return func(o *options) {
		o.gate = gate
	}
}

// WithLocale sets the initial locale prefix.
func WithLocale(locale string) Option {
	return func(o *options) {
		o.locale = locale
	}
}
