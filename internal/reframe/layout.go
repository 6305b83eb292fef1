package reframe

// Layout is the per-clip frame composition.
type Layout string

const (
	// LayoutSingle crops and scales the full frame around the tracked
	// subject.
	LayoutSingle Layout = "single"
	// LayoutSplit stacks the frame into two independently scaled
	// regions, used when two or more faces are on screen.
	LayoutSplit Layout = "split"
)

// SamplePoints returns the timestamps at 25%, 50% and 75% of the clip
// used for face-count sampling.
func SamplePoints(start, end float64) [3]float64 {
	d := end - start
	return [3]float64{
		start + d*0.25,
		start + d*0.50,
		start + d*0.75,
	}
}

// SelectLayout maps the maximum observed face count to a layout.
// Zero faces keeps the previous layout so a single missed detection
// does not flip the composition back and forth.
func SelectLayout(counts []int, previous Layout) Layout {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	switch {
	case maxCount >= 2:
		return LayoutSplit
	case maxCount == 1:
		return LayoutSingle
	default:
		if previous == "" {
			return LayoutSingle
		}
		return previous
	}
}
