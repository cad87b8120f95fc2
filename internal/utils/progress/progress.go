package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// DefaultWidth is the number of dots drawn by a full Dotted bar.
const DefaultWidth = 40

// Reporter receives the number of bytes read by the latest read together
// with the total size of the named stream.
type Reporter interface {
	Report(name string, n, total int64)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(name string, n, total int64)

func (f ReporterFunc) Report(name string, n, total int64) {
	f(name, n, total)
}

// Nop discards every report.
var Nop Reporter = ReporterFunc(func(string, int64, int64) {})

// Auto picks TTY when stdout is a terminal and Dotted otherwise. Output goes
// to w either way.
func Auto(w io.Writer) Reporter {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return NewTTY(w)
	}
	return NewDotted(w, DefaultWidth)
}

// New builds a reporter by name: "tty", "dots", "none" or "auto".
func New(kind string, w io.Writer) Reporter {
	switch strings.ToLower(kind) {
	case "tty":
		return NewTTY(w)
	case "dots":
		return NewDotted(w, DefaultWidth)
	case "none":
		return Nop
	default:
		return Auto(w)
	}
}

// TTY redraws a single percentage line and ends it with a newline at 100%.
type TTY struct {
	w    io.Writer
	seen int64
}

func NewTTY(w io.Writer) *TTY {
	return &TTY{w: w}
}

func (p *TTY) Report(name string, n, total int64) {
	if n <= 0 || total <= 0 {
		return
	}
	p.seen += n
	pct := float64(p.seen) * 100 / float64(total)
	fmt.Fprintf(p.w, "\rUploading %s - %.2f%%", name, pct)
	if int(pct) >= 100 {
		fmt.Fprint(p.w, "\n")
	}
}

// Dotted draws a fixed-width bar of dots, one line per stream.
type Dotted struct {
	w     io.Writer
	width int
	dots  int
	seen  int64
}

func NewDotted(w io.Writer, width int) *Dotted {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Dotted{w: w, width: width}
}

func (p *Dotted) Report(name string, n, total int64) {
	if n <= 0 || total <= 0 || p.dots >= p.width {
		return
	}
	if p.seen == 0 {
		fmt.Fprintf(p.w, "Uploading %s: ", name)
	}
	p.seen += n
	dots := int(p.seen * int64(p.width) / total)
	if dots > p.width {
		dots = p.width
	}
	if dots > p.dots {
		fmt.Fprint(p.w, strings.Repeat(".", dots-p.dots))
		p.dots = dots
	}
	if p.dots == p.width {
		fmt.Fprint(p.w, "\n")
	}
}
