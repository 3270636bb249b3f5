package scoring

// ScoreMetric maps value onto [0, maxPts] by linear interpolation between
// zeroPoint and idealPoint, clamping out-of-range inputs to the band.
// For lower-is-better metrics the caller passes the band in the same
// ascending order and sets invert, which swaps the role of the two
// endpoints before interpolation; the clamp bounds stay [0, maxPts]
// either way.
func ScoreMetric(value, zeroPoint, idealPoint, maxPts float64, invert bool) float64 {
	if invert {
		zeroPoint, idealPoint = idealPoint, zeroPoint
	}
	span := idealPoint - zeroPoint
	if span == 0 {
		return 0
	}
	t := (value - zeroPoint) / span
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * maxPts
}
