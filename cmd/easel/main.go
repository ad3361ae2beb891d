// Command easel curates reference photos for timed drawing practice.
//
// Usage:
//
//	easel                     Show help
//	easel curate <theme>      Curate reference images for a theme
//	easel practice <theme>    Run a timed practice session
//	easel history             Recent practice sessions
//	easel stats               Practice statistics
//	easel scores <theme>      Inspect or reset per-theme image scores
package main

import (
	"fmt"
	"os"

	"github.com/avbell/easel/internal/logging"
)

const usage = `easel — reference photo curation for drawing practice

Usage:
  easel <command> [flags]

Commands:
  curate      Curate reference images for a theme
  practice    Run a timed practice session
  history     List recent practice sessions
  stats       Practice statistics over a lookback window
  scores      Inspect or reset a theme's learned image scores

Environment:
  PEXELS_API_KEY     Pexels API key (required for live image search)
  ANTHROPIC_API_KEY  Claude API key (optional, improves query expansion)
  OPENAI_API_KEY     OpenAI API key (optional fallback)

Run 'easel <command> -h' for command-specific help.
`

func main() {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "easel: logging unavailable: %v\n", err)
	}
	defer logging.Close()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "curate":
		runCurate()
	case "practice":
		runPractice()
	case "history":
		runHistory()
	case "stats":
		runStats()
	case "scores":
		runScores()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "easel: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
