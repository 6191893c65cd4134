package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Coalesce returns the first value that is neither nil nor zero.
func Coalesce[T comparable](vals ...*T) T {
	var zero T
	for _, v := range vals {
		if v != nil && *v != zero {
			return *v
		}
	}
	return zero
}
