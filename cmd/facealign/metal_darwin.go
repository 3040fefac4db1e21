//go:build darwin

package main

import (
	"fmt"

	"github.com/tsawler/go-metal/checkpoints"
)

// checkMetal reports whether go-metal can import the model. go-metal only
// covers a small set of operators, so SCRFD graphs usually fail here and the
// detector keeps running on ONNX Runtime.
func checkMetal(path string) error {
	importer := checkpoints.NewONNXImporter()
	checkpoint, err := importer.ImportFromONNX(path)
	if err != nil {
		fmt.Printf("go-metal: import failed: %v\n", err)
		return nil
	}

	fmt.Printf("go-metal: %d layers, %d weight tensors\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	return nil
}
