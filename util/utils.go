package util

func Filter[T any](ts []T, fn func(T) bool) []T {
	var result []T
	for _, v := range ts {
		if fn(v) {
			result = append(result, v)
		}
	}
	return result
}

func Reduce[T, V any](ts []T, acc func(t T, v V) V, base V) V {
	for _, v := range ts {
		base = acc(v, base)
	}

	return base
}

// FlatMap concatenates fn over ts, in order. Returns nil when nothing is produced.
func FlatMap[T, V any](ts []T, fn func(T) []V) []V {
	var result []V
	for _, t := range ts {
		result = append(result, fn(t)...)
	}
	return result
}

// Concat joins slices without aliasing any of them.
func Concat[T any](parts ...[]T) []T {
	var result []T
	for _, p := range parts {
		result = append(result, p...)
	}
	return result
}

func Choose[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
