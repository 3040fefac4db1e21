package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/inference"
)

var inspectMetal bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [MODEL]",
	Short: "Print the inputs and outputs of a detector model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.DetectorModel
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("model not found: %w", err)
		}

		if err := inference.Initialize(cfg.ORTLibrary); err != nil {
			return err
		}
		defer inference.Shutdown()

		info, err := inference.ReadModelInfo(path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "KIND\tNAME\tSHAPE\n")
		for _, in := range info.Inputs {
			fmt.Fprintf(w, "input\t%s\t%v\n", in.Name, in.Dimensions)
		}
		for _, out := range info.Outputs {
			fmt.Fprintf(w, "output\t%s\t%v\n", out.Name, out.Dimensions)
		}
		w.Flush()

		if size, ok := info.FixedInputSize(); ok {
			fmt.Printf("\nfixed input size: %dx%d\n", size.X, size.Y)
		} else {
			fmt.Printf("\ndynamic input size\n")
		}
		strides := cfg.Detector.Strides
		switch len(info.Outputs) {
		case 3 * len(strides):
			fmt.Printf("heads: score, bbox and keypoints for strides %v\n", strides)
		case 2 * len(strides):
			fmt.Printf("heads: score and bbox for strides %v (no keypoints)\n", strides)
		default:
			fmt.Printf("warning: %d outputs do not match strides %v: %v\n",
				len(info.Outputs), strides, detector.ErrOutputShape)
		}

		if inspectMetal {
			return checkMetal(path)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectMetal, "metal", false, "Also check whether go-metal can import the model")
	rootCmd.AddCommand(inspectCmd)
}
