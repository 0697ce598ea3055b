// Package transcript reads podcast transcript files and splits them into
// overlapping line windows for embedding.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrCorpusIO reports a transcript file that could not be read. Ingestion
// logs it and moves on to the next document.
var ErrCorpusIO = errors.New("transcript: corpus io error")

// Document is one episode transcript. Lines are immutable once read.
type Document struct {
	ID    string // Source filename relative to the corpus root.
	Path  string
	Lines []string
}

// Read loads a transcript file from disk.
func Read(path, id string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorpusIO, id, err)
	}
	return &Document{ID: id, Path: path, Lines: SplitLines(string(data))}, nil
}

// SplitLines splits text on newlines. CRLF endings are normalized and a
// single trailing newline does not produce an extra empty line. Blank lines
// inside the text are kept.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

// Line is one parsed transcript line.
type Line struct {
	Speaker   string // Empty for unlabeled text.
	Utterance string
}

// ParseLine splits a "Speaker <id>: <utterance>" line. Anything else is
// returned as unlabeled text.
func ParseLine(s string) Line {
	if !strings.HasPrefix(s, "Speaker ") {
		return Line{Utterance: s}
	}
	idx := strings.Index(s, ":")
	if idx < 0 {
		return Line{Utterance: s}
	}
	speaker := strings.TrimSpace(s[:idx])
	if speaker == "Speaker" || strings.ContainsAny(speaker[len("Speaker "):], " \t") {
		return Line{Utterance: s}
	}
	return Line{Speaker: speaker, Utterance: strings.TrimSpace(s[idx+1:])}
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (d *Document) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range d.Lines {
		p := ParseLine(l)
		if p.Speaker == "" || seen[p.Speaker] {
			continue
		}
		seen[p.Speaker] = true
		out = append(out, p.Speaker)
	}
	return out
}
