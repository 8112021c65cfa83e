// Package tools provides the typed tool registry and the failure-isolating
// executor used by agent nodes.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/tripflow/types"
)

// Name identifies a tool in the catalog.
type Name string

// Travel tool catalog.
const (
	SearchFlights        Name = "search_flights"
	SearchAccommodations Name = "search_accommodations"
	GetWeather           Name = "get_weather"
	GetDestinationInfo   Name = "get_destination_info"
	ConvertCurrency      Name = "convert_currency"
	EstimateBudget       Name = "estimate_budget"
	BuildItinerary       Name = "build_itinerary"
)

// Catalog lists every tool name the registry accepts by default.
var Catalog = []Name{
	SearchFlights,
	SearchAccommodations,
	GetWeather,
	GetDestinationInfo,
	ConvertCurrency,
	EstimateBudget,
	BuildItinerary,
}

// DefaultTimeout applies when Metadata.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Params are the arguments of one invocation.
type Params map[string]any

// Text returns the value of key as a string, or "".
func (p Params) Text(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float returns key as a float64.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns key as an int.
func (p Params) Int(key string) (int, bool) {
	f, ok := p.Float(key)
	return int(f), ok
}

// Handler executes a tool.
type Handler func(ctx context.Context, params Params) (any, error)

// RateLimit throttles calls to one tool.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// Metadata describes a registered tool.
type Metadata struct {
	Description string
	Timeout     time.Duration
	RateLimit   *RateLimit
}

type entry struct {
	handler Handler
	meta    Metadata
	limiter *rate.Limiter
}

// Registry maps tool names to handlers. Unknown names are rejected at
// registration; once sealed the registry is read-only.
type Registry struct {
	mu      sync.RWMutex
	allowed map[Name]struct{}
	entries map[Name]*entry
	sealed  bool
	logger  *zap.Logger
}

// NewRegistry creates a registry accepting the given catalog, or Catalog when
// none is given.
func NewRegistry(logger *zap.Logger, catalog ...Name) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(catalog) == 0 {
		catalog = Catalog
	}
	allowed := make(map[Name]struct{}, len(catalog))
	for _, n := range catalog {
		allowed[n] = struct{}{}
	}
	return &Registry{
		allowed: allowed,
		entries: make(map[Name]*entry),
		logger:  logger.With(zap.String("component", "tool_registry")),
	}
}

// Register adds a tool.
func (r *Registry) Register(name Name, h Handler, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry sealed: cannot register %s", name)
	}
	if _, ok := r.allowed[name]; !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	if h == nil {
		return fmt.Errorf("tool %s: nil handler", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	if meta.Timeout <= 0 {
		meta.Timeout = DefaultTimeout
	}

	e := &entry{handler: h, meta: meta}
	if rl := meta.RateLimit; rl != nil && rl.PerSecond > 0 {
		burst := rl.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rl.PerSecond), burst)
	}
	r.entries[name] = e

	r.logger.Debug("tool registered", zap.String("name", string(name)), zap.Duration("timeout", meta.Timeout))
	return nil
}

// MustRegister is Register that panics, for static wiring.
func (r *Registry) MustRegister(name Name, h Handler, meta Metadata) {
	if err := r.Register(name, h, meta); err != nil {
		panic(err)
	}
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Lookup returns the handler and metadata of name.
func (r *Registry) Lookup(name Name) (Handler, Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, Metadata{}, false
	}
	return e.handler, e.meta, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	_, _, ok := r.Lookup(name)
	return ok
}

// Require fails when any of names is not registered.
func (r *Registry) Require(names ...Name) error {
	var missing []string
	for _, n := range names {
		if !r.Has(n) {
			missing = append(missing, string(n))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("tools not registered: %v", missing)
	}
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// reserve takes a throttle token for name.
func (r *Registry) reserve(name Name) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok || e.limiter == nil {
		return nil
	}
	if !e.limiter.Allow() {
		return types.NewError(types.ErrToolThrottled, fmt.Sprintf("tool %s throttled", name)).
			WithRetryable(true).
			WithTool(string(name))
	}
	return nil
}
