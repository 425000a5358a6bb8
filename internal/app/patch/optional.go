// Package patch holds the field wrapper used by partial updates.
package patch

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// HasValue reports whether the field was specified with a non-null value.
func (o Optional[T]) HasValue() bool { return o.specified && !o.isNull }

// Ptr resolves the field against a nullable current value: unspecified keeps
// cur, null clears it, a value replaces it.
func (o Optional[T]) Ptr(cur *T) *T {
	switch {
	case !o.specified:
		return cur
	case o.isNull:
		return nil
	default:
		v := o.value
		return &v
	}
}

// Or returns the value when one was given, else cur.
func (o Optional[T]) Or(cur T) T {
	if o.HasValue() {
		return o.value
	}
	return cur
}
