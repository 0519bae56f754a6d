package asynctask

import "context"

// Builder is the generic shape behind every façade entry point in
// spec.md §4.D: construct with a terminal action, optionally attach a
// result handler (transforming a Result[T] into some U) or an error
// handler (transforming one error into another), then call Action.
//
// Go has no typestate/session types, so the "compile-time rejected unknown
// option" invariant from spec.md §6 is approximated here with a narrow
// exported surface (WithResultHandler/WithErrorHandler) rather than a
// state-indexed type; each concrete façade (cipher.Builder, hash.Builder,
// ...) wraps this with its own named With* methods so invalid combinations
// are still caught by normal Go method-set typing at the façade layer.
type Builder[T any] struct {
	action       func(ctx context.Context) (T, error)
	onResult     func(T, error) (any, error)
	onError      func(error) error
	hasResult    bool
}

// NewBuilder wraps the terminal action (the work to run on the blocking pool).
func NewBuilder[T any](action func(ctx context.Context) (T, error)) *Builder[T] {
	return &Builder[T]{action: action}
}

// WithErrorHandler installs a transform applied to a non-nil error before it
// is returned or passed to a result handler. Per spec.md: "error handlers
// transform errors in-place without affecting the success path."
func (b *Builder[T]) WithErrorHandler(fn func(error) error) *Builder[T] {
	b.onError = fn
	return b
}

// WithResultHandler installs a handler receiving the full (value, error) and
// producing a replacement value of any shape. Action ignores the handler;
// ActionHandled passes Action's (value, error) to it once and returns
// whatever it returns, error included, without handling that result again.
func (b *Builder[T]) WithResultHandler(fn func(T, error) (any, error)) *Builder[T] {
	b.onResult = fn
	b.hasResult = true
	return b
}

// Action runs the builder's terminal on the blocking-capable pool and
// applies whatever handlers were installed.
func (b *Builder[T]) Action(ctx context.Context) (T, error) {
	fut := Spawn(ctx, func() (T, error) { return b.action(ctx) })
	v, err := fut.Await(ctx)
	if err != nil && b.onError != nil {
		err = b.onError(err)
	}
	return v, err
}

// ActionHandled runs Action and, if a result handler was installed, passes
// the outcome through it. Façades that support on_result expose this
// instead of Action.
func (b *Builder[T]) ActionHandled(ctx context.Context) (any, error) {
	v, err := b.Action(ctx)
	if b.hasResult {
		return b.onResult(v, err)
	}
	return v, err
}

// ChunkStream adapts a producer of T into a bounded Stream, applying an
// optional chunk handler that may transform or terminate the stream early
// by returning ok=false. This is the streaming counterpart of Action for
// façades like vault.Find / chunked cipher/compress.
func ChunkStream[T any](ctx context.Context, capacity int, produce func(ctx context.Context, emit func(T) bool), onChunk func(T) (T, bool)) *Stream[T] {
	return NewStream(ctx, capacity, func(ctx context.Context, emit func(T) bool) {
		produce(ctx, func(v T) bool {
			if onChunk != nil {
				transformed, ok := onChunk(v)
				if !ok {
					return false
				}
				v = transformed
			}
			return emit(v)
		})
	})
}
