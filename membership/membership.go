package membership

import (
	"context"

	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/cqrs"
	"github.com/denhac/spacebot/pkg/keymutex"
)

// AggregateType is the stream prefix for every customer.
const AggregateType = "membership"

type config struct {
	logger   *zap.Logger
	keyMutex keymutex.KeyMutex
}

// Option defines functional option parameters for New.
type Option func(*config)

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithKeyMutex is a functional option to inject the per customer KeyMutex.
func WithKeyMutex(keyMutex keymutex.KeyMutex) Option {
	return func(c *config) {
		c.keyMutex = keyMutex
	}
}

// New constructs the membership command dispatcher.
func New(store spacebot.Store, options ...Option) cqrs.CommandDispatcher {
	cfg := &config{
		logger: zap.NewNop(),
	}

	for _, option := range options {
		option(cfg)
	}

	BindEvents(store)

	cqrsOptions := []cqrs.Option{
		cqrs.WithLogger(cfg.logger),
		cqrs.WithAggregates(func() cqrs.Aggregate {
			return NewCustomer(cfg.logger)
		}),
	}

	if cfg.keyMutex != nil {
		cqrsOptions = append(cqrsOptions, cqrs.WithKeyMutex(cfg.keyMutex))
	}

	return cqrs.New(store, cqrsOptions...)
}

// LoadCustomer rebuilds one customer by folding its stream from the start.
func LoadCustomer(ctx context.Context, store spacebot.Store, customerID string) (CustomerState, error) {
	BindEvents(store)

	aggregate := NewCustomer(nil)
	_, err := cqrs.Load(ctx, store, spacebot.GetStream(AggregateType, customerID), aggregate)
	if err != nil {
		return CustomerState{}, err
	}

	return aggregate.State(), nil
}
