// Package progress renders byte-count progress for downloads.
package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Bar is an io.Writer that advances a progress bar by the bytes written to
// it. A disabled Bar swallows writes.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New starts a bar for size bytes (-1 when unknown) rendered to w. It is
// only enabled when w is a terminal, colors are on and debug logging is off,
// so redirected output and verbose logs stay clean.
func New(w io.Writer, size int64, description string) *Bar {
	if w == nil || !Enabled(w) {
		return &Bar{}
	}
	return &Bar{bar: progressbar.NewOptions64(
		size,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionEnableColorCodes(!color.NoColor),
	)}
}

// Enabled reports whether progress should be drawn on w.
func Enabled(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return !slog.Default().Enabled(context.Background(), slog.LevelDebug)
}

func (b *Bar) Write(p []byte) (int, error) {
	if b.bar == nil {
		return len(p), nil
	}
	return b.bar.Write(p)
}

// Finish completes the bar.
func (b *Bar) Finish() error {
	if b.bar == nil {
		return nil
	}
	return b.bar.Finish()
}
