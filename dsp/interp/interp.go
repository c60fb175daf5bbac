// Package interp provides fractional-sample interpolation kernels for
// modulated delay lines.
package interp

// Hermite4 computes cubic 4-point Hermite interpolation with
// Catmull-Rom-style tangents. It interpolates from x0 to x1 using the
// neighbor points xm1 and x2; t is the fractional position in [0, 1].
//
// Compared to linear interpolation, the cubic kernel avoids audible
// zipper artifacts when the read position is continuously modulated.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// Linear computes 2-point linear interpolation between x0 and x1.
func Linear(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}
