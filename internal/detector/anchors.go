package detector

import (
	"image"
	"sync"
)

// GenerateAnchors returns the anchor centers of one stride in output row order.
// Grid positions are enumerated row-major and each one is repeated numAnchors
// times, so anchor i lines up with row i of the stride's output tensors.
func GenerateAnchors(inputSize image.Point, stride, numAnchors int) []Point {
	if stride <= 0 || numAnchors <= 0 {
		return nil
	}
	fmHeight := inputSize.Y / stride
	fmWidth := inputSize.X / stride
	if fmHeight <= 0 || fmWidth <= 0 {
		return nil
	}

	anchors := make([]Point, 0, fmHeight*fmWidth*numAnchors)
	for y := 0; y < fmHeight; y++ {
		for x := 0; x < fmWidth; x++ {
			c := Point{X: float32(x * stride), Y: float32(y * stride)}
			for a := 0; a < numAnchors; a++ {
				anchors = append(anchors, c)
			}
		}
	}
	return anchors
}

// AnchorCount is the number of anchors GenerateAnchors produces.
func AnchorCount(inputSize image.Point, stride, numAnchors int) int {
	if stride <= 0 || numAnchors <= 0 {
		return 0
	}
	return (inputSize.Y / stride) * (inputSize.X / stride) * numAnchors
}

type anchorKey struct {
	size       image.Point
	stride     int
	numAnchors int
}

// AnchorCache memoizes anchor grids. Cached slices are shared between
// callers and must not be modified.
type AnchorCache struct {
	mu    sync.RWMutex
	grids map[anchorKey][]Point
}

// NewAnchorCache creates an empty cache
func NewAnchorCache() *AnchorCache {
	return &AnchorCache{grids: make(map[anchorKey][]Point)}
}

// Get returns the anchor grid for the given stride and input size.
func (c *AnchorCache) Get(inputSize image.Point, stride, numAnchors int) []Point {
	key := anchorKey{size: inputSize, stride: stride, numAnchors: numAnchors}

	c.mu.RLock()
	grid, ok := c.grids[key]
	c.mu.RUnlock()
	if ok {
		return grid
	}

	grid = GenerateAnchors(inputSize, stride, numAnchors)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.grids[key]; ok {
		return existing
	}
	c.grids[key] = grid
	return grid
}

// Len returns the number of cached grids
func (c *AnchorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.grids)
}
