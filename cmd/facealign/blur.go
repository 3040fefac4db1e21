package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudu/facealign/internal/imageio"
)

var (
	blurOutput string
	blurFactor float64
)

var blurCmd = &cobra.Command{
	Use:   "blur IMAGE",
	Short: "Blur every detected face in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, _, err := imageio.Load(args[0])
		if err != nil {
			return err
		}

		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		out, n, err := p.BlurFaces(img, blurFactor)
		if err != nil {
			return err
		}
		if err := imageio.Save(blurOutput, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d faces blurred, written to %s\n", n, blurOutput)
		return nil
	},
}

func init() {
	blurCmd.Flags().StringVarP(&blurOutput, "out", "o", "blurred.jpg", "Output image")
	blurCmd.Flags().Float64VarP(&blurFactor, "factor", "f", 0, "Blur sigma factor (0 = config value)")
	rootCmd.AddCommand(blurCmd)
}
