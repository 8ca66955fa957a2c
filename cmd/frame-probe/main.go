// Command frame-probe scores the encoder complexity of still frames.
// It runs the same analysis the live controller applies to the output
// surface, which makes it useful for checking what a given background
// or overlay will look like to the stability logic.
//
// Usage:
//
//	frame-probe [-target 0.3] frame.png [next-frame.png ...]
//
// With multiple frames the temporal score is computed between
// consecutive images.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/disintegration/imaging"

	"stream-compositor/internal/complexity"
)

const analysisMaxDim = 128

func main() {
	target := flag.Float64("target", 0.3, "target overall complexity score")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: frame-probe [-target 0.3] frame.png [next-frame.png ...]")
		os.Exit(1)
	}

	var prev []float64
	exitCode := 0
	for _, path := range flag.Args() {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load %s: %v\n", path, err)
			os.Exit(1)
		}

		sample := imaging.Fit(img, analysisMaxDim, analysisMaxDim, imaging.Box)

		var m complexity.Metrics
		m, prev = complexity.Analyze(sample, prev)

		fmt.Printf("%s\n", path)
		fmt.Printf("  spatial:   %.4f\n", m.Spatial)
		fmt.Printf("  temporal:  %.4f\n", m.Temporal)
		fmt.Printf("  variance:  %.4f\n", m.FrameVariance)
		fmt.Printf("  overall:   %.4f\n", m.Overall)
		fmt.Printf("  low:       %v\n", m.IsLow)

		if m.Overall < *target {
			intensity := (*target - m.Overall) * 2
			fmt.Printf("  below target %.2f: injection intensity would be %.4f\n", *target, intensity)
			exitCode = 2
		} else {
			fmt.Printf("  meets target %.2f\n", *target)
		}
	}

	os.Exit(exitCode)
}
