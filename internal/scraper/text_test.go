package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	in := "  First   line\t here \n\n\n\n Second line \n\n"
	assert.Equal(t, "First line here\n\nSecond line", CleanText(in))
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText(" \n \n"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 10))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
}
