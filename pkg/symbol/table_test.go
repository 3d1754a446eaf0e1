package symbol

import (
	"strings"
	"testing"
)

func TestFromReader(t *testing.T) {
	t.Parallel()

	in := strings.TrimSpace(`
<blank> 0
<unk> 1
a 2
b 3
`)
	tbl, err := FromReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}

	if got := tbl.Size(); got != 4 {
		t.Errorf("Size() = %d, want 4", got)
	}
	for id, want := range map[int]string{0: "<blank>", 1: "<unk>", 2: "a", 3: "b"} {
		got, ok := tbl.Resolve(id)
		if !ok || got != want {
			t.Errorf("Resolve(%d) = %q, %v; want %q, true", id, got, ok, want)
		}
	}
	if _, ok := tbl.Resolve(99); ok {
		t.Error("Resolve(99) should report missing")
	}
}

func TestFromReader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing id", "hello\n"},
		{"non-numeric id", "a x\n"},
		{"negative id", "a -1\n"},
		{"duplicate id", "a 1\nb 1\n"},
		{"too many fields", "a 1 extra\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := FromReader(strings.NewReader(tt.in)); err == nil {
				t.Errorf("expected error for %q", tt.in)
			}
		})
	}
}

func TestFromReader_SparseIDs(t *testing.T) {
	t.Parallel()

	tbl, err := FromReader(strings.NewReader("a 0\nb 10\n"))
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if got := tbl.Size(); got != 11 {
		t.Errorf("Size() = %d, want 11", got)
	}
	if _, ok := tbl.Resolve(5); ok {
		t.Error("Resolve(5) should report missing for sparse table")
	}
}
