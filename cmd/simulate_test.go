// cmd/simulate_test.go

package main

import "testing"

func TestParseTraceLine(t *testing.T) {
	cases := []struct {
		line string
		want traceOp
	}{
		{"100-200", traceOp{start: 100, length: 100}},
		{" 0-10 ", traceOp{start: 0, length: 10}},
		{"100+50", traceOp{start: 100, length: 50, whole: true}},
		{"@120", traceOp{query: true, offset: 120}},
		{"7-7", traceOp{start: 7, length: 0}},
	}
	for _, c := range cases {
		got, err := parseTraceLine(c.line)
		if err != nil {
			t.Errorf("parse %q: %s", c.line, err)
			continue
		}
		if got != c.want {
			t.Errorf("parse %q: got %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseTraceLineErrors(t *testing.T) {
	for _, line := range []string{"", "abc", "10-5", "@", "@x", "10-", "-5"} {
		if _, err := parseTraceLine(line); err == nil {
			t.Errorf("parse %q: expected error", line)
		}
	}
}
