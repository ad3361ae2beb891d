package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avbell/easel/internal/config"
	"github.com/avbell/easel/internal/download"
	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
	"github.com/avbell/easel/internal/view"
)

func runPractice() {
	fs := flag.NewFlagSet("practice", flag.ExitOnError)
	count := fs.Int("count", 10, "How many images in the session")
	duration := fs.Int("duration", 120, "Seconds per image")
	fresh := fs.Bool("fresh", false, "Bypass the cache and fetch new material")
	noDownload := fs.Bool("no-download", false, "Skip prefetching image files to disk")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fatalf("usage: easel practice [flags] <theme>")
	}
	theme := fs.Arg(0)

	a := openApp()
	defer a.close()

	images, err := a.curator.Curate(context.Background(), theme, *count, *fresh)
	if err != nil {
		fatalf("curate: %v", err)
	}
	if len(images) == 0 {
		fatalf("no images available for %q - is PEXELS_API_KEY set?", theme)
	}
	if len(images) < *count {
		fmt.Printf("Only %d of %d requested images available.\n", len(images), *count)
	}

	var pathFor func(string) string
	if !*noDownload {
		cache, err := download.NewCache(filepath.Join(config.DataDir(), "images"))
		if err != nil {
			logging.Warn("Image cache unavailable, showing URLs", "error", err)
		} else {
			fmt.Printf("Fetching %d image(s)...\n", len(images))
			cache.Prefetch(images)
			pathFor = func(id string) string {
				p := cache.Path(id)
				if _, err := os.Stat(p); err != nil {
					return ""
				}
				return p
			}
		}
	}

	sessionID, err := a.store.CreateSession(theme, *duration, len(images))
	if err != nil {
		fatalf("create session: %v", err)
	}
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ProviderID
	}
	if err := a.store.AddSessionImages(sessionID, ids); err != nil {
		fatalf("record session images: %v", err)
	}

	m := view.NewSession(a.store, a.scorer, sessionID, theme, images, *duration, pathFor)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fatalf("session UI: %v", err)
	}

	printSessionSummary(a.store, sessionID)
}

func printSessionSummary(st *store.Store, sessionID int64) {
	sess, err := st.GetSession(sessionID)
	if err != nil || sess == nil {
		return
	}
	fmt.Printf("\nSession %d (%s): %d/%d images, %s\n",
		sess.ID, sess.Theme, sess.ImagesCompleted, sess.TotalImages, sess.Status)
}
