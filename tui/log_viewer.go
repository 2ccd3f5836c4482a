package tui

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogCapture implements io.Writer to capture log messages
type LogCapture struct {
	messages []string
	mutex    sync.Mutex
	maxLines int
}

func NewLogCapture(maxLines int) *LogCapture {
	return &LogCapture{
		messages: make([]string, 0),
		maxLines: maxLines,
	}
}

func (lc *LogCapture) Write(p []byte) (n int, err error) {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	lc.messages = append(lc.messages, string(p))

	// Keep only the last N messages
	if len(lc.messages) > lc.maxLines {
		lc.messages = lc.messages[len(lc.messages)-lc.maxLines:]
	}

	return len(p), nil
}

func (lc *LogCapture) GetMessages() string {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	return strings.Join(lc.messages, "")
}

func (lc *LogCapture) Clear() {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	lc.messages = lc.messages[:0]
}

func (t *TUIApp) showLogViewer() {
	logText := tview.NewTextView().
		SetDynamicColors(false).
		SetWrap(true).
		SetScrollable(true)

	logText.SetBorder(true).SetTitle("Debug Log (ESC closes, c clears)")

	if t.logCapture != nil {
		logText.SetText(t.logCapture.GetMessages())
		logText.ScrollToEnd()
	} else {
		logText.SetText("No log capture active")
	}

	logText.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape:
			t.backToBoard()
			return nil
		case event.Rune() == 'c' && t.logCapture != nil:
			t.logCapture.Clear()
			logText.SetText("")
			return nil
		}
		return event
	})

	t.app.SetRoot(modal(logText, 100, 30), true).SetFocus(logText)
}

// initLogging sends the global logger to a temp file and the in-memory
// capture, since the terminal belongs to the UI.
func (t *TUIApp) initLogging(debug bool) {
	t.logCapture = NewLogCapture(1000)

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = t.logCapture
	logFile, err := os.CreateTemp("", "kingme-tui-*.log")
	if err == nil {
		w = io.MultiWriter(logFile, t.logCapture)
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger

	if logFile != nil {
		logger.Info().Str("logfile", logFile.Name()).Msg("tui-logging-initialized")
	}
}
