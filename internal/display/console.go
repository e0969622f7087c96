package display

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/zombor/scanai/internal/scanning"
)

// Texts shown by the console
const (
	TextScanning   = "Scanning..."
	TextScanFailed = "Error scanning image."
	TextRetryHint  = "Type 'retry' to try again."
)

// Console renders status and results on a terminal
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	slot  Slot
}

// NewConsole creates a Console; colours are used only on a terminal
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, color: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Slot exposes the console's current-result slot
func (c *Console) Slot() *Slot {
	return &c.slot
}

func (c *Console) ServerStatus(status scanning.ServerStatus, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s %s\n", c.paint(text.FgHiBlack, "["+status.String()+"]"), message)
	if status == scanning.StatusUnreachable {
		fmt.Fprintln(c.out, TextRetryHint)
	}
}

func (c *Console) Scanning(attempt uint64) {
	if !c.slot.Begin(attempt) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, TextScanning)
}

func (c *Console) Outcome(o scanning.Outcome) {
	if !c.slot.Offer(o) {
		slog.Debug("Dropping outcome of a superseded attempt", "attempt", o.Attempt)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !o.OK() {
		fmt.Fprintln(c.out, c.paint(text.FgRed, TextScanFailed))
		return
	}
	fmt.Fprintln(c.out, RenderResult(o.Result, c.color))
}

func (c *Console) paint(color text.Color, s string) string {
	if !c.color {
		return s
	}
	return color.Sprint(s)
}

// RenderResult formats a result as sum, a numbers table and the detected text
func RenderResult(r *scanning.ScanResult, color bool) string {
	var b strings.Builder

	sum := fmt.Sprintf("Sum: %d", r.Sum)
	if color {
		sum = text.Colors{text.FgHiMagenta, text.Bold}.Sprint(sum)
	}
	b.WriteString(sum)
	b.WriteString("\n\n")

	if len(r.Numbers) == 0 {
		b.WriteString("Numbers: (none)\n")
	} else {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"#", "Number"})
		for i, n := range r.Numbers {
			tw.AppendRow(table.Row{i + 1, strconv.Itoa(n)})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
			{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		})
		b.WriteString(tw.Render())
		b.WriteString("\n")
	}

	b.WriteString("\nDetected Text:\n")
	b.WriteString(r.DetectedText)
	return b.String()
}
