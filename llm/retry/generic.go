package retry

import "context"

// DoWithResultTyped runs fn under r and returns its typed result.
// A nil result yields the zero value of T.
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	v, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}
