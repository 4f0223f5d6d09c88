package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstAttach  BookmarkType = "first_attach"
	BookmarkTensionSpike BookmarkType = "tension_spike"
	BookmarkImpact       BookmarkType = "impact"
	BookmarkMissStreak   BookmarkType = "miss_streak"
	BookmarkSettled      BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Step        uint64       `csv:"step" json:"step"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// settleWindows is how many consecutive quiet windows mark the craft as settled.
const settleWindows = 4

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	settleTolerance float64

	// State tracking
	attachedOnce      bool
	quietWindowsCount int // consecutive windows with the craft hanging still
	settledReported   bool
}

// NewBookmarkDetector creates a detector with the given history size.
// settleTolerance is the speed below which a tensioned craft counts as still.
func NewBookmarkDetector(historySize int, settleTolerance float64) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for rolling averages
	}
	return &BookmarkDetector{
		history:         make([]WindowStats, historySize),
		historySize:     historySize,
		settleTolerance: settleTolerance,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstAttach(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkMissStreak(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkTensionSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkImpact(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// previous returns the most recently added window.
func (bd *BookmarkDetector) previous() (WindowStats, bool) {
	if !bd.historyFull && bd.historyIdx == 0 {
		return WindowStats{}, false
	}
	idx := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	return bd.history[idx], true
}

func (bd *BookmarkDetector) checkFirstAttach(stats WindowStats) *Bookmark {
	if bd.attachedOnce || stats.Attached == 0 {
		return nil
	}
	bd.attachedOnce = true
	return &Bookmark{
		Type:        BookmarkFirstAttach,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("First anchor after %d shots", stats.Fired),
	}
}

func (bd *BookmarkDetector) checkTensionSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.TensionP90
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.TensionMax > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkTensionSpike,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Peak tension %.0f is %.1fx average p90 (%.0f)", stats.TensionMax, stats.TensionMax/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkImpact(stats WindowStats) *Bookmark {
	prev, ok := bd.previous()
	if !ok || prev.Contacts > 0 || stats.Contacts == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkImpact,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Craft hit geometry at up to %.1f u/s", stats.SpeedMax),
	}
}

func (bd *BookmarkDetector) checkMissStreak(stats WindowStats) *Bookmark {
	if stats.Missed < 3 || stats.Attached > 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkMissStreak,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("%d shots missed without an anchor", stats.Missed),
	}
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.TensionP50 <= 0 || stats.SpeedMax > bd.settleTolerance {
		bd.quietWindowsCount = 0
		bd.settledReported = false
		return nil
	}

	bd.quietWindowsCount++
	if bd.quietWindowsCount < settleWindows || bd.settledReported {
		return nil
	}
	bd.settledReported = true
	return &Bookmark{
		Type:        BookmarkSettled,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Craft hanging still at tension %.0f over %d windows", stats.TensionP50, settleWindows),
	}
}
