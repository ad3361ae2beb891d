package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "How many sessions to list")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	sessions, err := a.store.SessionHistory(*limit)
	if err != nil {
		fatalf("session history: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No practice sessions yet.")
		return
	}

	for _, s := range sessions {
		length := "-"
		if s.EndedAt != nil {
			length = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("#%-4d %-20s %s  %d/%d images  %-10s %s\n",
			s.ID, s.Theme, s.StartedAt.Format("2006-01-02 15:04"),
			s.ImagesCompleted, s.TotalImages, s.Status, length)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	days := fs.Int("days", 30, "Lookback window in days")
	fs.Parse(os.Args[1:])

	a := openApp()
	defer a.close()

	total, err := a.store.TotalPracticeTime(*days)
	if err != nil {
		fatalf("practice time: %v", err)
	}
	completed, err := a.store.ImagesCompleted(*days)
	if err != nil {
		fatalf("images completed: %v", err)
	}

	fmt.Printf("Last %d days:\n", *days)
	fmt.Printf("  Practice time:    %s\n", total.Round(time.Second))
	fmt.Printf("  Images completed: %d\n", completed)
}
