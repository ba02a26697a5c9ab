package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 5); got != 5 {
		t.Fatalf("empty: got %d", got)
	}
	if got := ParseIntDefault("x", 5); got != 5 {
		t.Fatalf("invalid: got %d", got)
	}
	if got := ParseIntDefault(" 12 ", 5); got != 12 {
		t.Fatalf("valid: got %d", got)
	}
}

func TestParseFloatDefault(t *testing.T) {
	if got := ParseFloatDefault("0.42", 0); got != 0.42 {
		t.Fatalf("got %v", got)
	}
	if got := ParseFloatDefault("nope", 1.5); got != 1.5 {
		t.Fatalf("got %v", got)
	}
	if got := ParseInt64Default("9007199254740993", 0); got != 9007199254740993 {
		t.Fatalf("got %d", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a:1, ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("got %q", got)
	}
	if NormalizeSymbol(" btcusdt ") != "BTCUSDT" {
		t.Fatalf("normalize failed")
	}
}
