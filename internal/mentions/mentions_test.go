package mentions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeSplitter splits on "|" so matching can be tested independently of the
// tokenizer model.
type pipeSplitter struct{}

func (pipeSplitter) Split(text string) []string { return strings.Split(text, "|") }

func TestLocateMatching(t *testing.T) {
	l := NewLocator(pipeSplitter{})

	text := "JANE DOE spoke.|Nobody else did.|Later, jane\n  doe left.|Mary Janedoe?"
	got := l.Locate(text, "Jane Doe")
	assert.Equal(t, []string{"JANE DOE spoke.", "Later, jane doe left."}, got)

	// Substring, not entity, matching.
	got = l.Locate("Joann Leeds arrived.|Ann Lee waved.", "Ann Lee")
	assert.Equal(t, []string{"Joann Leeds arrived.", "Ann Lee waved."}, got)
}

func TestLocateEmpty(t *testing.T) {
	l := NewLocator(pipeSplitter{})
	assert.Empty(t, l.Locate("", "Jane Doe"))
	assert.Empty(t, l.Locate("Jane Doe spoke.", "   "))
	assert.Empty(t, l.Locate("Nothing relevant here.", "Jane Doe"))
}

func TestPunktSplitter(t *testing.T) {
	p, err := NewPunktSplitter()
	require.NoError(t, err)

	l := NewLocator(p)
	text := "Jane Doe opened a clinic on Monday. The clinic serves the east side.\n" +
		"Residents thanked Jane\nDoe for the effort."
	got := l.Locate(text, "jane doe")
	assert.Equal(t, []string{
		"Jane Doe opened a clinic on Monday.",
		"Residents thanked Jane Doe for the effort.",
	}, got)
}
