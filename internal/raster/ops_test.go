package raster_test

import (
	"testing"

	"github.com/dudu/facealign/internal/raster"
	"github.com/dudu/facealign/internal/raster/rastertest"
)

func TestImagingOps(t *testing.T) {
	rastertest.Run(t, raster.NewImaging())
}
