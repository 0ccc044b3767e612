package main

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// styles for smoke output
type styles struct {
	out       *termenv.Output
	step      termenv.Style
	success   termenv.Style
	failure   termenv.Style
	dim       termenv.Style
	assistant termenv.Style
}

// newStyles picks colors for the terminal background. Non-terminal writers
// get plain text.
func newStyles(w io.Writer) *styles {
	var opts []termenv.OutputOption
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	out := termenv.NewOutput(w, opts...)

	s := &styles{out: out}
	if out.HasDarkBackground() {
		s.step = out.String().Foreground(out.Color("179")).Bold()
		s.success = out.String().Foreground(out.Color("65"))
		s.failure = out.String().Foreground(out.Color("124"))
		s.dim = out.String().Faint()
		s.assistant = out.String().Foreground(out.Color("141"))
	} else {
		s.step = out.String().Foreground(out.Color("136")).Bold()
		s.success = out.String().Foreground(out.Color("28"))
		s.failure = out.String().Foreground(out.Color("160"))
		s.dim = out.String().Foreground(out.Color("240"))
		s.assistant = out.String().Foreground(out.Color("90"))
	}
	return s
}

