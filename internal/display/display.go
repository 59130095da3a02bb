// Package display renders exchange records as fixed-width text tables.
package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"
)

// State is the per-loop display state. Each polling loop owns one; it is
// never shared between loops.
type State struct {
	HeaderPrinted bool
}

// Renderer writes a human-readable view of v to w. It must not fail.
type Renderer[T any] interface {
	Render(w io.Writer, v T, st *State)
}

// RendererFunc adapts an ordinary function to the Renderer interface.
type RendererFunc[T any] func(w io.Writer, v T, st *State)

// Render implements the Renderer interface
func (f RendererFunc[T]) Render(w io.Writer, v T, st *State) {
	f(w, v, st)
}

// SyncWriter serialises writes from concurrent loops so that a single
// rendered block is never interleaved with another loop's output.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// ClearScreen moves the cursor home and clears the terminal.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\x1b[2J\x1b[1;1H")
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// newStreamTable returns a borderless table whose columns keep a fixed
// minimum width, so rows rendered on later ticks line up with the header
// rendered on the first one.
func newStreamTable(w io.Writer, widths []int) *tablewriter.Table {
	table := newTable(w)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetRowLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for i, width := range widths {
		table.SetColMinWidth(i, width)
	}
	return table
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
