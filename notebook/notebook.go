package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// Major is the only nbformat major version that can be read and written.
	Major = 4

	// Minor is the nbformat minor version of notebooks created with New.
	Minor = 5
)

var (
	// ErrUnsupportedVersion is returned when a notebook's nbformat is not [Major].
	ErrUnsupportedVersion = errors.New("unsupported nbformat version")

	// ErrInvalidUTF8 is returned when a notebook file is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")

	// ErrTrailingData is returned when a notebook file contains data after the
	// notebook object.
	ErrTrailingData = errors.New("unexpected data after notebook")
)

// Notebook is a Jupyter notebook: an ordered list of cells plus
// notebook-level metadata. Cells and metadata are kept as opaque JSON objects
// so that reading and writing a notebook never alters their content.
type Notebook struct {
	Cells         []Cell   `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// Metadata is the notebook-level metadata object (kernelspec, language_info,
// authoring tool, ...).
type Metadata map[string]any

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return Metadata(cloneObject(m))
}

// Cell is a single notebook cell. Its structure is not interpreted beyond the
// accessors below.
type Cell map[string]any

// Type returns the cell_type of the cell, or an empty string.
func (c Cell) Type() string {
	t, _ := c["cell_type"].(string)
	return t
}

// Source returns the cell source. nbformat allows both a single string and a
// list of lines; lists are joined without separator.
func (c Cell) Source() string {
	switch src := c["source"].(type) {
	case string:
		return src
	case []any:
		var b strings.Builder
		for _, line := range src {
			if s, ok := line.(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	default:
		return ""
	}
}

// Clone returns a deep copy of the cell.
func (c Cell) Clone() Cell {
	return Cell(cloneObject(c))
}

// New returns an empty notebook of the current format version with the given
// metadata. The metadata is copied.
func New(meta Metadata) *Notebook {
	return &Notebook{
		Cells:         []Cell{},
		Metadata:      meta.Clone(),
		NBFormat:      Major,
		NBFormatMinor: Minor,
	}
}

// Append adds cells to the end of the notebook, keeping their order.
func (nb *Notebook) Append(cells ...Cell) {
	nb.Cells = append(nb.Cells, cells...)
}

// Clone returns a deep copy of the notebook.
func (nb *Notebook) Clone() *Notebook {
	out := *nb
	out.Metadata = nb.Metadata.Clone()
	out.Cells = make([]Cell, len(nb.Cells))
	for i, c := range nb.Cells {
		out.Cells[i] = c.Clone()
	}
	return &out
}

// Decode reads a notebook from r. Numbers are kept as [json.Number] so that
// they are written back exactly as they were read. The input must be valid
// UTF-8 and consist of a single JSON object.
func Decode(r io.Reader) (*Notebook, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}

	if !utf8.Valid(b) {
		return nil, fmt.Errorf("decode notebook: %w", ErrInvalidUTF8)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var nb Notebook
	if err := dec.Decode(&nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode notebook: %w", ErrTrailingData)
	}

	if nb.NBFormat != Major {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, nb.NBFormat, nb.NBFormatMinor)
	}

	if nb.Cells == nil {
		nb.Cells = []Cell{}
	}
	if nb.Metadata == nil {
		nb.Metadata = Metadata{}
	}

	return &nb, nil
}

// Read opens and decodes the notebook at path in fsys. Open errors are
// returned as is; they already name the path.
func Read(fsys fs.FS, path string) (*Notebook, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes the notebook to w in the layout used by Jupyter itself:
// one-space indentation, sorted keys, unescaped HTML and non-ASCII characters
// and a trailing newline. Encoding the same notebook twice yields the same
// bytes.
func (nb *Notebook) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", " ")
	enc.SetEscapeHTML(false)

	out := *nb
	if out.Cells == nil {
		out.Cells = []Cell{}
	}
	if out.Metadata == nil {
		out.Metadata = Metadata{}
	}

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode notebook: %w", err)
	}

	if _, err := w.Write(unescapeLineSeparators(buf.Bytes())); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}

	return nil
}

// Bytes returns the encoded notebook.
func (nb *Notebook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := nb.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unescapeLineSeparators replaces the \u2028 and \u2029 escapes that
// encoding/json always emits with the raw characters. An escape only counts if
// it is preceded by an even number of backslashes.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}

		if i+5 < len(b) && b[i+1] == 'u' && string(b[i+2:i+5]) == "202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = utf8.AppendRune(out, '\u2028')
			} else {
				out = utf8.AppendRune(out, '\u2029')
			}
			i += 5
			continue
		}

		// Copy the escaped character along with the backslash so that an
		// escaped backslash is never mistaken for the start of an escape.
		out = append(out, b[i])
		if i+1 < len(b) {
			i++
			out = append(out, b[i])
		}
	}
	return out
}

func cloneObject(m map[string]any) map[string]any {
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneObject(v)
	case []any:
		out := slices.Clone(v)
		for i, e := range out {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
