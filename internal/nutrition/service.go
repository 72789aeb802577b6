package nutrition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dang-doctor/doctor-fe/internal/logutil"
)

const defaultConcurrency = 4

type Option func(*Service)

// WithCache serves repeated lookups from c and stores fresh ones in it.
func WithCache(c *Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithFallback is tried when the primary lookup fails.
func WithFallback(l Lookuper) Option {
	return func(s *Service) { s.fallback = l }
}

// WithConcurrency bounds the number of lookups in flight.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Service struct {
	lookup      Lookuper
	fallback    Lookuper
	cache       *Cache
	concurrency int
	logger      *slog.Logger
}

func NewService(lookup Lookuper, opts ...Option) *Service {
	s := &Service{
		lookup:      lookup,
		concurrency: defaultConcurrency,
		logger:      logutil.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAggregate looks every name up concurrently and sums the results. A
// failed lookup yields a zero item carrying the error; only a cancelled ctx
// fails the whole call.
func (s *Service) FetchAggregate(ctx context.Context, names []string) (Aggregate, error) {
	defer logutil.NewTimingLogger(s.logger, time.Now(), "nutrition aggregate", "count", len(names))()

	items := make([]Item, len(names))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range names {
		g.Go(func() error {
			items[i] = s.lookupOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}

	agg := Aggregate{Items: items}
	for i := range items {
		if items[i].Err != nil {
			items[i].Error = items[i].Err.Error()
		}
		agg.Totals = agg.Totals.Add(items[i].Facts)
	}
	return agg, nil
}

func (s *Service) lookupOne(ctx context.Context, name string) Item {
	display := strings.TrimSpace(name)
	if display == "" {
		return Item{Name: name, Source: SourceNone, Err: fmt.Errorf("food name is empty")}
	}
	if err := ctx.Err(); err != nil {
		return Item{Name: display, Source: SourceNone, Err: err}
	}

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, display)
		if err != nil {
			s.logger.Warn("nutrition cache read failed", "food", display, "err", err)
		} else if found {
			cached.Name = display
			return cached
		}
	}

	item, err := s.lookup.Lookup(ctx, display)
	if err != nil && s.fallback != nil {
		s.logger.Debug("primary nutrition lookup failed, trying fallback", "food", display, "err", err)
		fb, fbErr := s.fallback.Lookup(ctx, display)
		if fbErr == nil {
			item, err = fb, nil
		} else {
			err = fmt.Errorf("%w; fallback: %w", err, fbErr)
		}
	}
	if err != nil {
		s.logger.Warn("nutrition lookup failed", "food", display, "err", err)
		return Item{Name: display, Source: SourceNone, Err: fmt.Errorf("lookup %q: %w", display, err)}
	}

	item.Name = display
	item.Facts = item.Facts.nonNegative()
	if item.Source == "" {
		item.Source = SourceBackend
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, item); err != nil {
			s.logger.Warn("nutrition cache write failed", "food", display, "err", err)
		}
	}
	return item
}
