// Package symbol provides the read-only symbol table that maps vocabulary
// IDs produced by the acoustic scorer to text tokens.
//
// The on-disk format is one "token id" pair per line (the units.txt format
// common to CTC model exports), e.g.:
//
//	<blank> 0
//	<unk> 1
//	a 2
//
// A loaded Table is immutable and safe for concurrent use by any number of
// sessions.
package symbol

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table resolves integer symbol IDs to token text.
type Table struct {
	tokens map[int]string
	size   int
}

// Load reads a symbol table file from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symbol: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("symbol: parse %q: %w", path, err)
	}
	return t, nil
}

// FromReader parses a symbol table from r. Blank lines are ignored; any
// other malformed line is an error.
func FromReader(r io.Reader) (*Table, error) {
	tokens := make(map[int]string)
	maxID := -1

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"token id\", got %q", lineNo, line)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q: %w", lineNo, fields[1], err)
		}
		if id < 0 {
			return nil, fmt.Errorf("line %d: negative id %d", lineNo, id)
		}
		if _, dup := tokens[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate id %d", lineNo, id)
		}
		tokens[id] = fields[0]
		if id > maxID {
			maxID = id
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty symbol table")
	}

	return &Table{tokens: tokens, size: maxID + 1}, nil
}

// Resolve returns the token text for id. The second return value is false
// when id is not present in the table.
func (t *Table) Resolve(id int) (string, bool) {
	tok, ok := t.tokens[id]
	return tok, ok
}

// Size returns the vocabulary size implied by the table (max ID + 1).
func (t *Table) Size() int { return t.size }
