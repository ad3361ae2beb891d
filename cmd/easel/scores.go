package main

import (
	"flag"
	"fmt"
	"os"
)

func runScores() {
	fs := flag.NewFlagSet("scores", flag.ExitOnError)
	threshold := fs.Float64("threshold", 0.5, "List images scoring below this")
	reset := fs.Bool("reset", false, "Reset all of the theme's scores to 1.0")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fatalf("usage: easel scores [flags] <theme>")
	}
	theme := fs.Arg(0)

	a := openApp()
	defer a.close()

	if *reset {
		if err := a.store.ResetScores(theme); err != nil {
			fatalf("reset scores: %v", err)
		}
		fmt.Printf("Scores for %q reset to 1.0.\n", theme)
		return
	}

	low, err := a.store.LowScoredImages(theme, *threshold)
	if err != nil {
		fatalf("low scores: %v", err)
	}
	if len(low) == 0 {
		fmt.Printf("No images for %q scoring below %.2f.\n", theme, *threshold)
		return
	}

	fmt.Printf("Images for %q scoring below %.2f:\n", theme, *threshold)
	for _, id := range low {
		fmt.Printf("  %s\n", id)
	}
}
