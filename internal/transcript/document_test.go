package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank line kept", "a\n\nb", []string{"a", "", "b"}},
		{"only newline", "\n", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.in))
		})
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ep1.txt")
	require.NoError(t, os.WriteFile(path, []byte("Speaker A: hi\nSpeaker B: yo\n"), 0644))

	doc, err := Read(path, "ep1.txt")
	require.NoError(t, err)
	assert.Equal(t, "ep1.txt", doc.ID)
	assert.Equal(t, []string{"Speaker A: hi", "Speaker B: yo"}, doc.Lines)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"), "nope.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorpusIO))
}

func TestParseLine(t *testing.T) {
	assert.Equal(t, Line{Speaker: "Speaker A", Utterance: "welcome back"}, ParseLine("Speaker A: welcome back"))
	assert.Equal(t, Line{Speaker: "Speaker 2", Utterance: "ok: sure"}, ParseLine("Speaker 2: ok: sure"))
	assert.Equal(t, Line{Utterance: "[music]"}, ParseLine("[music]"))
	assert.Equal(t, Line{Utterance: "Speaker notes are fun: yes"}, ParseLine("Speaker notes are fun: yes"))
	assert.Equal(t, Line{Utterance: "Speaker : empty"}, ParseLine("Speaker : empty"))
}

func TestDocument_Speakers(t *testing.T) {
	doc := &Document{Lines: []string{
		"Speaker A: one",
		"intro music",
		"Speaker B: two",
		"Speaker A: three",
	}}
	assert.Equal(t, []string{"Speaker A", "Speaker B"}, doc.Speakers())
}
