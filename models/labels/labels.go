// Package labels - Label tables mapping model class indices to names.
package labels

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// BuiltinPrefix selects a compiled-in table instead of a label file, e.g. "builtin:coco".
const BuiltinPrefix = "builtin:"

// ErrEmptyTable is returned when a label table would contain no entries.
var ErrEmptyTable = errors.New("label table is empty")

// Table is an ordered, immutable list of class names indexed by class id.
type Table struct {
	names     []string
	nameToIdx map[string]int
}

// New builds a table from names. The slice is copied.
func New(names []string) (*Table, error) {
	if len(names) == 0 {
		return nil, ErrEmptyTable
	}

	t := &Table{
		names:     append([]string(nil), names...),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range t.names {
		if _, ok := t.nameToIdx[name]; !ok {
			t.nameToIdx[name] = i
		}
	}
	return t, nil
}

// Parse reads one label per line. Line order defines the class id. Blank lines
// are kept as empty labels so ids stay aligned with the model output.
func Parse(r io.Reader) (*Table, error) {
	var names []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading labels")
	}

	return New(names)
}

// Load reads a label file from disk.
//
// Arguments:
//   - path: Path to a newline separated label file.
//
// Returns:
//   - *Table: The parsed table.
//   - error: If the file is missing, unreadable or empty.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening label file %q", path)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing label file %q", path)
	}
	return t, nil
}

// Resolve loads a table from a file path or, with BuiltinPrefix, from a
// compiled-in set.
func Resolve(source string) (*Table, error) {
	if name, ok := strings.CutPrefix(source, BuiltinPrefix); ok {
		return Builtin(name)
	}
	return Load(source)
}

// Lookup returns the label of class id.
func (t *Table) Lookup(id int) (string, error) {
	if id < 0 || id >= len(t.names) {
		return "", errors.Wrapf(postprocess.ErrClassOutOfRange, "class %d, table has %d labels", id, len(t.names))
	}
	return t.names[id], nil
}

// IndexOf returns the first class id carrying name.
func (t *Table) IndexOf(name string) (int, bool) {
	idx, ok := t.nameToIdx[name]
	return idx, ok
}

// Len returns the number of labels.
func (t *Table) Len() int {
	return len(t.names)
}

// Names returns a copy of all labels in class id order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}
