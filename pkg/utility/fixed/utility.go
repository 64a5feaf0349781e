package fixed

// Sum adds points, skipping unset values.
func Sum(points ...Point) Point {
	sum := Zero
	for _, point := range points {
		if point.IsUnset() {
			continue
		}
		sum = sum.Add(point)
	}
	return sum
}
