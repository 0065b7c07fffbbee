package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Renderer writes run results either styled for a terminal or as plain
// lines for logs and pipes.
type Renderer struct {
	out    io.Writer
	styled bool
}

// NewRenderer styles output only when styled is true.
func NewRenderer(out io.Writer, styled bool) *Renderer {
	return &Renderer{out: out, styled: styled}
}

// Summary prints one line per relation in load order.
func (r *Renderer) Summary(s *imdbload.Summary) {
	if !r.styled {
		fmt.Fprintf(r.out, "Summary: %s\n", s)
		fmt.Fprintf(r.out, "Run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
		return
	}

	width := 0
	for _, rc := range s.Relations {
		width = max(width, len(rc.Relation))
	}
	diagnostics := false
	for _, rc := range s.Relations {
		if rc.Filtered > 0 {
			diagnostics = true
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Load summary"))
	b.WriteString("\n")
	for _, rc := range s.Relations {
		line := LabelStyle.Width(width+2).Render(rc.Relation) +
			CountStyle.Width(12).Render(strconv.FormatInt(rc.Offered, 10))
		if diagnostics {
			line += MutedStyle.Render(fmt.Sprintf("  inserted %d, filtered %d", rc.Inserted, rc.Filtered))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(MutedStyle.Render(fmt.Sprintf("run %s in %s", s.RunID, s.Duration.Round(time.Millisecond))))
	fmt.Fprintln(r.out, BoxStyle.Render(b.String()))
}

// Status prints the final status message.
func (r *Renderer) Status(msg string, ok bool) {
	if ok {
		r.line(SuccessStyle, SymbolCheck, msg)
		return
	}
	r.line(ErrorStyle, SymbolCross, msg)
}

// Connection prints the outcome of a connectivity check.
func (r *Renderer) Connection(role string, err error) {
	if err != nil {
		r.line(ErrorStyle, SymbolCross, "not connected: "+err.Error())
		return
	}
	r.line(SuccessStyle, SymbolCheck, "connected ("+role+")")
}

func (r *Renderer) line(style lipgloss.Style, symbol, msg string) {
	if !r.styled {
		fmt.Fprintln(r.out, msg)
		return
	}
	fmt.Fprintln(r.out, style.Render(symbol+" "+msg))
}
