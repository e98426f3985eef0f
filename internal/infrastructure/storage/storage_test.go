package storage

import "testing"

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent("transaction"); got != `"transaction"` {
		t.Errorf("got %s", got)
	}
	if got := QuoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("embedded quote not escaped: %s", got)
	}
}

func TestOrderClause(t *testing.T) {
	if got := OrderClause("transaction"); got != `"timestamp" ASC, "transactionID" ASC` {
		t.Errorf("transaction: %s", got)
	}
	if got := OrderClause("pair"); got != `"pairID" ASC` {
		t.Errorf("pair: %s", got)
	}
	if got := OrderClause("custom"); got != `"customID" ASC` {
		t.Errorf("custom: %s", got)
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1000},
		{-5, 1000},
		{2000, 1000},
		{10, 10},
		{1000, 1000},
	}
	for _, c := range cases {
		if got := ClampLimit(c.in, 1000); got != c.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
