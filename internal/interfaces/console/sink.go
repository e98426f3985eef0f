package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"xgains/internal/application/port"
)

type Sink struct {
	w io.Writer
}

func NewSink() port.Sink { return &Sink{w: os.Stdout} }

// NewWriterSink 输出到任意 writer（测试用）
func NewWriterSink(w io.Writer) *Sink { return &Sink{w: w} }

func (s *Sink) WriteLine(line string) error {
	_, err := fmt.Fprintln(s.w, line)
	return err
}

func (s *Sink) WriteJSON(v any) error {
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Sink) WriteLive(line string) error {
	_, err := fmt.Fprint(s.w, line) // no newline
	return err
}

// 打印快照行后留一个空行，等下一次变化再刷新 live 行
func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	_, err := fmt.Fprintf(s.w, "\n%s %s\n\n", ts.Format("2006-01-02 15:04:05"), line)
	return err
}

func (s *Sink) NewLine() error {
	_, err := fmt.Fprint(s.w, "\n")
	return err
}
