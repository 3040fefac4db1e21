package detector

// DecodeStride turns one stride's raw outputs into candidates in model input
// space. Only anchors scoring strictly above threshold are kept; a stride
// without any such anchor yields nil.
func DecodeStride(out RawStrideOutput, anchors []Point, threshold float32) []Candidate {
	var faces []Candidate

	stride := float32(out.Stride)
	hasKps := len(out.Landmarks) > 0

	for i, score := range out.Scores {
		if !(score > threshold) {
			continue
		}
		if i >= len(anchors) {
			break
		}
		cx, cy := anchors[i].X, anchors[i].Y

		// Decode bbox (distance to edges)
		bboxIdx := i * 4
		c := Candidate{
			Box: BoundingBox{
				X1: cx - out.Boxes[bboxIdx]*stride,
				Y1: cy - out.Boxes[bboxIdx+1]*stride,
				X2: cx + out.Boxes[bboxIdx+2]*stride,
				Y2: cy + out.Boxes[bboxIdx+3]*stride,
			},
			Score: score,
		}

		if hasKps {
			kpsIdx := i * 10
			var pts [5]Point
			for p := range pts {
				pts[p] = Point{
					X: cx + out.Landmarks[kpsIdx+2*p]*stride,
					Y: cy + out.Landmarks[kpsIdx+2*p+1]*stride,
				}
			}
			l := LandmarksFromPoints(pts)
			c.Landmarks = &l
		}

		faces = append(faces, c)
	}

	return faces
}
