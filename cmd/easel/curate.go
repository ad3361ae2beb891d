package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func runCurate() {
	fs := flag.NewFlagSet("curate", flag.ExitOnError)
	count := fs.Int("count", 10, "How many images to curate")
	fresh := fs.Bool("fresh", false, "Bypass the cache and fetch new material")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fatalf("usage: easel curate [flags] <theme>")
	}
	theme := fs.Arg(0)

	a := openApp()
	defer a.close()

	images, err := a.curator.Curate(context.Background(), theme, *count, *fresh)
	if err != nil {
		fatalf("curate: %v", err)
	}

	if len(images) == 0 {
		fmt.Println("No images found. Is PEXELS_API_KEY set?")
		return
	}

	fmt.Printf("Curated %d image(s) for %q:\n\n", len(images), theme)
	for i, img := range images {
		fmt.Printf("%2d. %s\n", i+1, img.URL)
		if img.Description != "" {
			fmt.Printf("    %s\n", img.Description)
		}
		fmt.Printf("    %s  (score %.2f, shown %d, used %d)\n",
			img.Attribution, img.Score, img.TimesShown, img.TimesUsed)
	}
}
