package common

import "golang.org/x/exp/constraints"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// DivRoundUp divides n by d and rounds the result up to the next whole number.
// A zero divisor yields zero so callers never panic on an unset group size.
//
// Parameters:
//   - n: the dividend, typically a thread count
//   - d: the divisor, typically a workgroup size
//
// Returns:
//   - T: ceil(n / d)
func DivRoundUp[T constraints.Integer](n, d T) T {
	if d == 0 {
		return 0
	}
	return n/d + min(n%d, 1)
}

// AlignUp rounds value up to the next multiple of alignment.
//
// Parameters:
//   - value: the value to align
//   - alignment: the required alignment, must be greater than zero
//
// Returns:
//   - T: value rounded up to a multiple of alignment
func AlignUp[T constraints.Integer](value, alignment T) T {
	if alignment <= 0 {
		return value
	}
	return DivRoundUp(value, alignment) * alignment
}

// GroupCount computes the number of workgroups needed to cover threads with groups of size groupSize on each axis.
//
// Parameters:
//   - threads: total thread count per axis
//   - groupSize: workgroup size per axis
//
// Returns:
//   - [3]uint32: the workgroup count per axis
func GroupCount(threads, groupSize [3]uint32) [3]uint32 {
	return [3]uint32{
		DivRoundUp(threads[0], groupSize[0]),
		DivRoundUp(threads[1], groupSize[1]),
		DivRoundUp(threads[2], groupSize[2]),
	}
}
