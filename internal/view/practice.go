// Package view provides the terminal UI for timed practice sessions.
//
// The session model is "dumb" about curation: it receives an already
// selected image list and only records what the user does with it.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/scoring"
	"github.com/avbell/easel/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	frameStyle = lipgloss.NewStyle().Padding(1, 2)
)

var keys = struct {
	Next    key.Binding
	Skip    key.Binding
	Like    key.Binding
	Dislike key.Binding
	Pause   key.Binding
	Quit    key.Binding
}{
	Next:    key.NewBinding(key.WithKeys("enter", "n", " ")),
	Skip:    key.NewBinding(key.WithKeys("s")),
	Like:    key.NewBinding(key.WithKeys("+", "=")),
	Dislike: key.NewBinding(key.WithKeys("-", "_")),
	Pause:   key.NewBinding(key.WithKeys("p")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

type tickMsg time.Time

// imagePath resolves a provider id to a local file, "" when unavailable.
type imagePath func(providerID string) string

// SessionModel runs one timed practice session.
type SessionModel struct {
	store  *store.Store
	scorer *scoring.Scorer

	sessionID int64
	theme     string
	images    []store.CuratedImage
	duration  int // seconds per image
	pathFor   imagePath

	idx       int
	remaining int
	spent     int
	completed int
	paused    bool
	finished  bool
	statusMsg string

	width int
	prog  progress.Model
}

// NewSession creates the session model. pathFor may be nil when images were
// not prefetched; the view then shows the remote URL instead.
func NewSession(st *store.Store, scorer *scoring.Scorer, sessionID int64, theme string, images []store.CuratedImage, durationPerImage int, pathFor func(string) string) SessionModel {
	p := progress.New(
		progress.WithGradient("63", "213"),
		progress.WithoutPercentage(),
	)
	return SessionModel{
		store:     st,
		scorer:    scorer,
		sessionID: sessionID,
		theme:     theme,
		images:    images,
		duration:  durationPerImage,
		pathFor:   pathFor,
		remaining: durationPerImage,
		prog:      p,
	}
}

// Init implements tea.Model.
func (m SessionModel) Init() tea.Cmd {
	m.markShown()
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.prog.Width = min(msg.Width-8, 60)
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		if !m.paused {
			m.remaining--
			m.spent++
			if m.remaining <= 0 {
				return m.advance(false)
			}
		}
		return m, tick()

	case tea.KeyMsg:
		if m.finished {
			return m, tea.Quit
		}
		switch {
		case key.Matches(msg, keys.Quit):
			m.abandon()
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			return m.advance(false)
		case key.Matches(msg, keys.Skip):
			return m.advance(true)
		case key.Matches(msg, keys.Like):
			m.feedback(true)
		case key.Matches(msg, keys.Dislike):
			m.feedback(false)
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
		}
	}
	return m, nil
}

// advance records the current image's outcome and moves to the next one.
func (m SessionModel) advance(skipped bool) (tea.Model, tea.Cmd) {
	img := m.images[m.idx]
	if err := m.store.RecordInteraction(m.sessionID, img.ProviderID, m.spent, skipped); err != nil {
		logging.Warn("Failed to record interaction", "image", img.ProviderID, "error", err)
	}
	if !skipped {
		m.completed++
		if err := m.store.IncrementUsage(img.ProviderID); err != nil {
			logging.Warn("Failed to record usage", "image", img.ProviderID, "error", err)
		}
	}

	m.idx++
	if m.idx >= len(m.images) {
		m.finished = true
		if err := m.store.CompleteSession(m.sessionID, m.completed, store.StatusCompleted); err != nil {
			logging.Warn("Failed to finalize session", "session", m.sessionID, "error", err)
		}
		return m, nil
	}

	m.remaining = m.duration
	m.spent = 0
	m.statusMsg = ""
	m.markShown()
	return m, tick()
}

// markShown bumps the show counter for the image now on screen.
func (m SessionModel) markShown() {
	if m.idx < len(m.images) {
		img := m.images[m.idx]
		if err := m.scorer.RecordShown(img.ProviderID, m.theme); err != nil {
			logging.Warn("Failed to record shown", "image", img.ProviderID, "error", err)
		}
	}
}

func (m *SessionModel) feedback(positive bool) {
	img := m.images[m.idx]
	var (
		score float64
		err   error
	)
	if positive {
		score, err = m.scorer.RecordPositive(img.ProviderID, m.theme)
		m.statusMsg = fmt.Sprintf("Liked (score %.2f)", score)
	} else {
		score, err = m.scorer.RecordNegative(img.ProviderID, m.theme)
		m.statusMsg = fmt.Sprintf("Disliked (score %.2f)", score)
	}
	if err != nil {
		logging.Warn("Failed to record feedback", "image", img.ProviderID, "error", err)
		m.statusMsg = "Feedback not saved"
	}
}

// abandon finalizes the session early.
func (m *SessionModel) abandon() {
	if m.finished {
		return
	}
	m.finished = true
	if err := m.store.CompleteSession(m.sessionID, m.completed, store.StatusAbandoned); err != nil {
		logging.Warn("Failed to finalize session", "session", m.sessionID, "error", err)
	}
}

// View implements tea.Model.
func (m SessionModel) View() string {
	if m.finished {
		return frameStyle.Render(fmt.Sprintf(
			"%s\n\n%d of %d images completed.\n\n%s",
			titleStyle.Render("Session over"),
			m.completed, len(m.images),
			dimStyle.Render("Press any key to exit."),
		))
	}

	img := m.images[m.idx]

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Practicing: %s", m.theme)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  [%d/%d]", m.idx+1, len(m.images))))
	b.WriteString("\n\n")

	location := img.URL
	if m.pathFor != nil {
		if p := m.pathFor(img.ProviderID); p != "" {
			location = p
		}
	}
	b.WriteString(infoStyle.Render("Open: " + location))
	b.WriteString("\n")
	if img.Description != "" {
		b.WriteString(dimStyle.Render(img.Description))
		b.WriteString("\n")
	}
	if img.Attribution != "" {
		b.WriteString(dimStyle.Render(img.Attribution))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	frac := float64(m.remaining) / float64(m.duration)
	b.WriteString(m.prog.ViewAs(frac))
	b.WriteString(fmt.Sprintf("  %s", formatClock(m.remaining)))
	if m.paused {
		b.WriteString(warnStyle.Render("  PAUSED"))
	}
	b.WriteString("\n\n")

	if m.statusMsg != "" {
		b.WriteString(infoStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter next · s skip · + like · - dislike · p pause · q quit"))

	return frameStyle.Render(b.String())
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
