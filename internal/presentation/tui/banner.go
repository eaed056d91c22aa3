package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"      _       _    __ _               ", "#34d399"},
	{"  ___| | ___ | |_ / _| | _____      __", "#2dd4bf"},
	{" / __| |/ _ \\| __| |_| |/ _ \\ \\ /\\ / /", "#22d3ee"},
	{" \\__ \\ | (_) | |_|  _| | (_) \\ V  V / ", "#38bdf8"},
	{" |___/_|\\___/ \\__|_| |_|\\___/ \\_/\\_/  ", "#60a5fa"},
}

// PrintBanner writes the slotflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}
