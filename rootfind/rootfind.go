package rootfind

import (
	"errors"
	"math"
)

// ErrNoBracket indicates the two endpoints do not bracket a root
// (their function values share a sign).
var ErrNoBracket = errors.New("rootfind: endpoints do not bracket a root")

// ErrMaxIter indicates the iteration limit was exhausted before
// converging to tol.
var ErrMaxIter = errors.New("rootfind: exceeded max_iter without converging")

// Func evaluates the target function and its derivative at x.
type Func func(x float64) (y, dy float64)

// Find locates a root of f in [x1, x2] to within tol, evaluating the
// endpoints itself.
func Find(f Func, x1, x2, tol float64, maxIter int) (float64, error) {
	y1, _ := f(x1)
	y2, _ := f(x2)
	return FindBracketed(f, x1, y1, x2, y2, tol, maxIter)
}

// FindBracketed locates a root of f in [x1, x2] to within tol, given
// pre-evaluated endpoint values y1 = f(x1), y2 = f(x2).
//
// Contract (spec.md §4.9):
//  1. y1 == 0 returns x1 exactly; y2 == 0 returns x2 exactly.
//  2. y1 and y2 sharing a sign is a failure (no bracket).
//  3. endpoints are swapped internally so that y increases from x1 to x2.
//  4. each iteration takes a Newton step; if it lands outside the
//     current bracket or fails to reduce |y| fast enough, a bisection
//     midpoint is used instead. Stops when the bracket width is below
//     tol or |y| < tol; fails if maxIter is exhausted.
func FindBracketed(f Func, x1, y1, x2, y2 float64, tol float64, maxIter int) (float64, error) {
	if y1 == 0 {
		return x1, nil
	}
	if y2 == 0 {
		return x2, nil
	}
	if sameSign(y1, y2) {
		return 0, ErrNoBracket
	}
	// Orient so y increases from lo to hi.
	lo, hi := x1, x2
	if y1 > 0 {
		lo, hi = hi, lo
	}

	x := 0.5 * (lo + hi)
	for iter := 0; iter < maxIter; iter++ {
		y, dy := f(x)
		if math.Abs(y) < tol || math.Abs(hi-lo) < tol {
			return x, nil
		}

		xNewton := x
		steppable := dy != 0
		if steppable {
			xNewton = x - y/dy
		}

		var xNext float64
		if steppable && xNewton > lo && xNewton < hi && xNewton != x {
			xNext = xNewton
		} else {
			xNext = 0.5 * (lo + hi)
		}

		yNext, _ := f(xNext)
		if yNext < 0 {
			lo = xNext
		} else {
			hi = xNext
		}
		x = xNext
	}
	return x, ErrMaxIter
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
