package port

import "time"

type Sink interface {
	// Plain line, newline appended
	WriteLine(line string) error
	// Indented JSON document
	WriteJSON(v any) error
	// Status line redrawn in place
	WriteLive(line string) error
	WriteSnapshot(ts time.Time, line string) error
	NewLine() error
}
