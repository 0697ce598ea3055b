package transcript

import (
	"iter"
	"strings"
)

// DefaultWindow is the number of lines per chunk.
const DefaultWindow = 5

// Chunk is a window of consecutive lines from one document.
type Chunk struct {
	DocumentID string
	Index      int // Ordinal of the chunk within its document.
	StartLine  int
	Text       string
}

// Chunker produces overlapping line windows. Consecutive windows start
// Stride lines apart, so full windows share Window-Stride lines.
type Chunker struct {
	window int
	stride int
}

// NewChunker returns a chunker with the given window. The stride is
// window/2, floored at 1. Non-positive windows use DefaultWindow.
func NewChunker(window int) *Chunker {
	if window < 1 {
		window = DefaultWindow
	}
	return &Chunker{window: window, stride: max(1, window/2)}
}

func (c *Chunker) Window() int { return c.window }
func (c *Chunker) Stride() int { return c.stride }

// Texts yields the chunk texts for lines. Starting offsets are 0, S, 2S, ...
// while below len(lines); each window is clipped at the end of the document.
// A document shorter than the window yields a single chunk and an empty one
// yields none. The sequence may be ranged over any number of times.
func (c *Chunker) Texts(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, ch := range c.windows(lines) {
			if !yield(strings.Join(lines[ch[0]:ch[1]], "\n")) {
				return
			}
		}
	}
}

// Chunks yields chunks for a document along with their position.
func (c *Chunker) Chunks(doc *Document) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for i, w := range c.windows(doc.Lines) {
			ch := Chunk{
				DocumentID: doc.ID,
				Index:      i,
				StartLine:  w[0],
				Text:       strings.Join(doc.Lines[w[0]:w[1]], "\n"),
			}
			if !yield(ch) {
				return
			}
		}
	}
}

// Count returns how many chunks a document of n lines produces.
func (c *Chunker) Count(n int) int {
	switch {
	case n == 0:
		return 0
	case n < c.window:
		return 1
	default:
		return (n + c.stride - 1) / c.stride
	}
}

func (c *Chunker) windows(lines []string) [][2]int {
	n := len(lines)
	if n == 0 {
		return nil
	}
	if n < c.window {
		return [][2]int{{0, n}}
	}
	out := make([][2]int, 0, c.Count(n))
	for i := 0; i < n; i += c.stride {
		out = append(out, [2]int{i, min(i+c.window, n)})
	}
	return out
}
