package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudu/facealign/internal/imageio"
)

var (
	profileOutput  string
	profileMaxEdge int
)

var profileCmd = &cobra.Command{
	Use:   "profile IMAGE",
	Short: "Crop an upright square profile picture around the main face",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max-edge") {
			cfg.ProfileMaxEdge = profileMaxEdge
		}

		img, _, err := imageio.Load(args[0])
		if err != nil {
			return err
		}

		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		out, err := p.CropProfile(img)
		if err != nil {
			return err
		}
		if err := imageio.Save(profileOutput, out); err != nil {
			return err
		}
		b := out.Bounds()
		fmt.Fprintf(os.Stderr, "profile %dx%d written to %s\n", b.Dx(), b.Dy(), profileOutput)
		return nil
	},
}

func init() {
	profileCmd.Flags().StringVarP(&profileOutput, "out", "o", "profile.jpg", "Output image")
	profileCmd.Flags().IntVar(&profileMaxEdge, "max-edge", 640, "Downscale the crop to at most this edge length (0 = never)")
	rootCmd.AddCommand(profileCmd)
}
