package spatial

// Hilbert curve on an n x n grid, n a power of two. (0,0) is the lower left
// corner and the curve ends in the lower right corner at d = n*n-1.

func rotate(n int, x, y *int, rx, ry int) {
	if ry == 0 {
		if rx == 1 {
			*x = n - 1 - *x
			*y = n - 1 - *y
		}
		*x, *y = *y, *x
	}
}

// XY2D converts grid coordinates to the curve distance.
func XY2D(n, x, y int) int {
	d := 0
	for s := n / 2; s > 0; s /= 2 {
		rx, ry := 0, 0
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		rotate(s, &x, &y, rx, ry)
	}
	return d
}

// D2XY converts the curve distance back to grid coordinates.
func D2XY(n, d int) (x, y int) {
	t := d
	for s := 1; s < n; s *= 2 {
		rx := 1 & (t / 2)
		ry := 1 & (t ^ rx)
		rotate(s, &x, &y, rx, ry)
		x += s * rx
		y += s * ry
		t /= 4
	}
	return x, y
}
