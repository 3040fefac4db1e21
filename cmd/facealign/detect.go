package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dudu/facealign/internal/detector"
	"github.com/dudu/facealign/internal/pipeline"
)

var (
	detectWorkers int
	detectOutput  string
	detectAlign   bool
	detectQuiet   bool
)

var detectCmd = &cobra.Command{
	Use:   "detect IMAGE...",
	Short: "Detect faces and write one JSON record per image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDetectFlags(cmd)

		out := io.Writer(os.Stdout)
		if detectOutput != "" && detectOutput != "-" {
			f, err := os.Create(detectOutput)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		return runDetect(cmd, args, out)
	},
}

func init() {
	detectCmd.Flags().IntVarP(&detectWorkers, "workers", "w", 1, "Number of images processed in parallel")
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "-", "JSON lines output file (- for stdout)")
	detectCmd.Flags().BoolVar(&detectAlign, "align", false, "Also estimate the alignment transform of every face")
	detectCmd.Flags().BoolVarP(&detectQuiet, "quiet", "q", false, "Hide the progress bar")
	rootCmd.AddCommand(detectCmd)
}

// applyDetectFlags overrides config values with the flags given explicitly
func applyDetectFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("workers") {
		cfg.Workers = detectWorkers
	}
	if cmd.Flags().Changed("align") {
		cfg.Align = detectAlign
	}
}

type faceRecord struct {
	Box        [4]float32   `json:"box"`
	Confidence float32      `json:"confidence"`
	Landmarks  [][2]float32 `json:"landmarks,omitempty"`
	Angle      *float64     `json:"angle,omitempty"`
	Transform  *[6]float64  `json:"transform,omitempty"`
	AlignError string       `json:"align_error,omitempty"`
}

type imageRecord struct {
	Path        string       `json:"path"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	Faces       []faceRecord `json:"faces"`
	DetectionMs float64      `json:"detection_ms,omitempty"`
	Error       string       `json:"error,omitempty"`
}

func newImageRecord(item pipeline.BatchItem) imageRecord {
	rec := imageRecord{Path: item.Path, Faces: []faceRecord{}}
	if item.Err != nil {
		rec.Error = item.Err.Error()
		return rec
	}

	rec.Width, rec.Height = item.Result.Size.X, item.Result.Size.Y
	rec.DetectionMs = float64(item.Result.Timing.Detection.Microseconds()) / 1000
	for _, fr := range item.Result.Faces {
		rec.Faces = append(rec.Faces, newFaceRecord(fr))
	}
	return rec
}

func newFaceRecord(fr pipeline.FaceResult) faceRecord {
	f := fr.Face
	rec := faceRecord{
		Box:        [4]float32{f.Box.X1, f.Box.Y1, f.Box.X2, f.Box.Y2},
		Confidence: f.Confidence,
	}
	if f.Landmarks != nil {
		for _, p := range f.Landmarks.Points() {
			rec.Landmarks = append(rec.Landmarks, [2]float32{p.X, p.Y})
		}
		angle := detector.AlignmentAngle(*f.Landmarks)
		rec.Angle = &angle
	}
	if fr.Err != nil {
		rec.AlignError = fr.Err.Error()
	} else if fr.Aligned != nil {
		t := fr.Transform
		rec.Transform = &[6]float64{t.A, t.B, t.Tx, t.C, t.D, t.Ty}
	}
	return rec
}

func runDetect(cmd *cobra.Command, paths []string, out io.Writer) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("detecting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!detectQuiet),
	)

	enc := json.NewEncoder(out)
	var writeErr error
	failed := 0
	err = p.ProcessBatch(cmd.Context(), paths, cfg.Workers, func(item pipeline.BatchItem) {
		if item.Err != nil {
			failed++
		}
		if writeErr == nil {
			writeErr = enc.Encode(newImageRecord(item))
		}
		bar.Add(1)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write results: %w", writeErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}
