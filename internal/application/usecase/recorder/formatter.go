package recorder

import (
	"fmt"
	"strings"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) paint(s, c string) string {
	if !f.Color {
		return s
	}
	return colorize(s, c)
}

// Render 每个交易对显示最近一根 K 线的均价和已记录数量
func (f *Formatter) Render(st *State, mode RenderMode) string {
	snap := st.Snapshot()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}
	sb.WriteString(f.paint("[XGAINS] ", ansiDim))

	for i, sym := range st.Symbols() {
		if i > 0 {
			sb.WriteString(f.paint("  ||  ", ansiDim))
		}
		ss := snap[sym]

		px := "--"
		col := ansiYellow
		if ss.has {
			px = fmt.Sprintf("%.8g", ss.last.Mid())
			switch ss.dir {
			case DirUp:
				col = ansiGreen
			case DirDown:
				col = ansiRed
			}
		}
		fmt.Fprintf(&sb, "%s %s (%d)", sym, f.paint(px, col), ss.count)
	}

	if mode == RenderLive && f.Color {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}
