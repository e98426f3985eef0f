package recorder

import (
	"strings"
	"sync"

	"xgains/internal/domain/model"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type symState struct {
	last  model.Candle
	has   bool
	dir   Dir
	count int
}

// State 每个交易对最近一根已收盘 K 线
type State struct {
	mu sync.Mutex

	order []string
	syms  map[string]*symState
}

func NewState(symbols []string) *State {
	order := make([]string, 0, len(symbols))
	syms := make(map[string]*symState, len(symbols))
	for _, sym := range symbols {
		u := strings.ToUpper(strings.TrimSpace(sym))
		if u == "" {
			continue
		}
		if _, dup := syms[u]; dup {
			continue
		}
		order = append(order, u)
		syms[u] = &symState{}
	}
	return &State{order: order, syms: syms}
}

func (s *State) Symbols() []string {
	return s.order
}

// Apply 记录一根 K 线，返回是否是订阅中的交易对
func (s *State) Apply(c model.Candle) bool {
	sym := strings.ToUpper(strings.TrimSpace(c.Symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[sym]
	if st == nil {
		return false
	}

	mid := c.Mid()
	switch {
	case !st.has:
		st.dir = DirSame
	case mid > st.last.Mid():
		st.dir = DirUp
	case mid < st.last.Mid():
		st.dir = DirDown
	default:
		st.dir = DirSame
	}
	st.last = c
	st.has = true
	st.count++
	return true
}

func (s *State) Snapshot() map[string]symState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]symState, len(s.syms))
	for k, v := range s.syms {
		out[k] = *v
	}
	return out
}
