package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolcache/observe"
)

// Tool is the capability the wrapper composes over: a callable taking a
// string-like primary input and returning a serializable result.
//
// Contract:
// - Idempotence: within the TTL window, invoking with the same input is
//   assumed to produce an equivalent result; on a cache hit the tool is not
//   invoked and its side effects are skipped entirely.
// - Cancellation: honoring ctx is the tool's responsibility; the cache layer
//   imposes no timeout of its own.
type Tool interface {
	Invoke(ctx context.Context, input any) (json.RawMessage, error)
}

// ToolFunc adapts a function to the Tool interface.
type ToolFunc func(ctx context.Context, input any) (json.RawMessage, error)

// Invoke calls f.
func (f ToolFunc) Invoke(ctx context.Context, input any) (json.RawMessage, error) {
	return f(ctx, input)
}

// KeyFunc extracts the cacheable query string from a tool input. It must be
// total: any input, however malformed, yields some key.
type KeyFunc func(input any) string

// DefaultKeyFunc implements the documented extraction chain, in order:
//  1. a string input is used directly;
//  2. a map input uses its "query" value, then its "url" value, when the
//     value is a string;
//  3. anything else falls back to the canonical JSON string form of the
//     whole input.
//
// Callers rely on this ordering for argument-shape-insensitive addressing of
// simple tools; do not reorder it.
func DefaultKeyFunc(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case map[string]any:
		if q, ok := v["query"].(string); ok {
			return q
		}
		if u, ok := v["url"].(string); ok {
			return u
		}
	}
	if data, err := Canonicalize(input); err == nil {
		return string(data)
	}
	// Best-effort string form; never fail the call over an unkeyable input.
	return fmt.Sprintf("%v", input)
}

// CachedTool decorates a Tool with cache-aside behavior. From the caller's
// perspective inputs and outputs are unchanged; only whether the underlying
// tool runs differs.
type CachedTool struct {
	tool      Tool
	namespace string
	store     ResultStore
	keyFn     KeyFunc
	ttl       time.Duration
	scope     observe.Scope
	logger    observe.Logger
	tracer    observe.Tracer
	group     singleflight.Group // collapses concurrent misses per key
}

// WrapOption configures a CachedTool.
type WrapOption func(*CachedTool)

// WithTTL overrides the store's default TTL for results cached by this
// wrapper.
func WithTTL(ttl time.Duration) WrapOption {
	return func(c *CachedTool) { c.ttl = ttl }
}

// WithKeyFunc replaces the key extraction strategy.
func WithKeyFunc(fn KeyFunc) WrapOption {
	return func(c *CachedTool) { c.keyFn = fn }
}

// WithWrapLogger sets the wrapper's logger.
func WithWrapLogger(l observe.Logger) WrapOption {
	return func(c *CachedTool) { c.logger = l }
}

// WithWrapTracer sets the wrapper's tracer.
func WithWrapTracer(t observe.Tracer) WrapOption {
	return func(c *CachedTool) { c.tracer = t }
}

// Wrap decorates tool with cache-aside behavior against store under the
// given namespace. A nil store degrades to direct invocation: caching is an
// optimization and its unavailability never fails the call.
func Wrap(tool Tool, namespace string, store ResultStore, opts ...WrapOption) *CachedTool {
	c := &CachedTool{
		tool:      tool,
		namespace: namespace,
		store:     store,
		keyFn:     DefaultKeyFunc,
		ttl:       DefaultTTL,
		logger:    observe.NopLogger(),
		tracer:    observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.scope = observe.Scope{Store: "results", Namespace: namespace}
	if named, ok := store.(interface{ Name() string }); ok {
		c.scope.Store = named.Name()
	}
	return c
}

// Invoke consults the store before running the wrapped tool. On a hit the
// cached payload is returned and the tool is not invoked. On a miss the tool
// runs, its result is stored, and the result is returned. Errors are not
// cached. Concurrent misses for the same input share a single invocation;
// the returned payload must be treated as read-only.
func (c *CachedTool) Invoke(ctx context.Context, input any) (json.RawMessage, error) {
	if c.tool == nil {
		return nil, ErrNilTool
	}
	if c.store == nil {
		return c.tool.Invoke(ctx, input)
	}

	query := c.keyFn(input)

	ctx, span := c.tracer.StartInvoke(ctx, c.scope)

	if cached, ok := c.store.Get(ctx, c.namespace, query); ok {
		c.tracer.EndInvoke(span, true, nil)
		return cached, nil
	}

	result, err, _ := c.group.Do(c.namespace+"\x00"+query, func() (any, error) {
		out, err := c.tool.Invoke(ctx, input)
		if err != nil {
			return nil, err
		}

		if putErr := c.store.Put(ctx, c.namespace, query, out, c.ttl); putErr != nil {
			// Persistence failure degrades to uncached behavior.
			c.logger.Warn(ctx, "failed to cache tool result",
				observe.Field{Key: "namespace", Value: c.namespace},
				observe.Field{Key: "error", Value: putErr.Error()})
		}
		return out, nil
	})

	c.tracer.EndInvoke(span, false, err)
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// Ensure CachedTool implements Tool
var _ Tool = (*CachedTool)(nil)
var _ Tool = (ToolFunc)(nil)
