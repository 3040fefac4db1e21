package detector

import "sort"

// Fuse concatenates per-stride candidates and sorts them by descending score.
// The sort is stable, so ties keep stride order and then anchor order.
func Fuse(perStride ...[]Candidate) []Candidate {
	total := 0
	for _, c := range perStride {
		total += len(c)
	}
	if total == 0 {
		return nil
	}

	faces := make([]Candidate, 0, total)
	for _, c := range perStride {
		faces = append(faces, c...)
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Score > faces[j].Score
	})
	return faces
}

// NMS performs greedy Non-Maximum Suppression on score-sorted candidates and
// returns the indices to keep, in input order. A candidate is suppressed when
// its IoU with an already kept box is >= iouThreshold.
func NMS(faces []Candidate, iouThreshold float32) []int {
	if len(faces) == 0 {
		return nil
	}

	suppressed := make([]bool, len(faces))
	keep := make([]int, 0, len(faces))

	for i := 0; i < len(faces); i++ {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		for j := i + 1; j < len(faces); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(faces[i].Box, faces[j].Box) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// Select returns the candidates at the given indices
func Select(faces []Candidate, keep []int) []Candidate {
	out := make([]Candidate, len(keep))
	for i, idx := range keep {
		out[i] = faces[idx]
	}
	return out
}

// IoU calculates Intersection over Union of two bounding boxes
func IoU(a, b BoundingBox) float32 {
	// Intersection
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}
