package utils

import "golang.org/x/exp/constraints"

// Max returns the larger of two ordered values.
func Max[T constraints.Ordered](x T, y T) T {
	if x > y {
		return x
	}
	return y
}
