// Package similarity provides the string and date comparison primitives used by
// the matching and validation engines.
package similarity

import (
	"math"
	"strings"
	"time"
)

// Ratio returns a similarity ratio in [0, 1] between two strings using the
// longest-matching-blocks measure (Ratcliff/Obershelp): twice the number of
// matching characters divided by the total length of both strings. Comparison
// is case-insensitive. Symmetric and reflexive; the triangle inequality is not
// guaranteed.
func Ratio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2 * float64(matchingBlocks(ra, rb)) / float64(total)
}

// matchingBlocks counts matched characters by finding the longest common
// block, then recursing on the pieces to its left and right.
func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingBlocks(a[:ai], b[:bi]) +
		matchingBlocks(a[ai+size:], b[bi+size:])
}

// longestCommonBlock finds the leftmost longest common contiguous block of a
// and b, returning its start in a, start in b, and length.
func longestCommonBlock(a, b []rune) (int, int, int) {
	var bestI, bestJ, bestSize int
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > bestSize {
					bestSize = cur[j+1]
					bestI = i - bestSize + 1
					bestJ = j - bestSize + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
		for k := range cur {
			cur[k] = 0
		}
	}
	return bestI, bestJ, bestSize
}

// WithinDateWindow reports whether two dates are at most windowDays apart.
func WithinDateWindow(d1, d2 time.Time, windowDays int) bool {
	return DateVarianceDays(d1, d2) <= windowDays
}

// DateVarianceDays returns the absolute difference between two dates in whole days.
func DateVarianceDays(d1, d2 time.Time) int {
	return int(math.Abs(d1.Sub(d2).Hours() / 24))
}
