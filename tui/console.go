package tui

import (
	"fmt"
	"io"

	"showtimes-console/rotation"
)

const clearScreen = "\033[2J\033[H"

// Console renders frames as plain text, redrawing the whole screen each time.
type Console struct {
	out   io.Writer
	width int
	clear bool
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out, width: frameWidth, clear: true}
}

func (c *Console) Render(frame rotation.Frame) error {
	prefix := ""
	if c.clear {
		prefix = clearScreen
	}
	_, err := fmt.Fprintf(c.out, "%s%s\n%s\n", prefix, FormatFrame(frame, c.width), positionLine(frame))
	return err
}

func (c *Console) Notice(msg string) {
	fmt.Fprintf(c.out, "\n%s\n", msg)
}

func (c *Console) Refreshing() {
	fmt.Fprintln(c.out, "Loading showtimes...")
}
