// Package mentions finds the sentences of an article that name a person.
package mentions

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter breaks text into sentences in document order.
type Splitter interface {
	Split(text string) []string
}

// PunktSplitter splits English text with the punkt sentence tokenizer.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter loads the English punkt model.
func NewPunktSplitter() (*PunktSplitter, error) {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("mentions: load tokenizer: %w", err)
	}
	return &PunktSplitter{tokenizer: t}, nil
}

// Split implements Splitter.
func (p *PunktSplitter) Split(text string) []string {
	toks := p.tokenizer.Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, s := range toks {
		out = append(out, s.Text)
	}
	return out
}

// Locator selects the sentences containing a name.
type Locator struct {
	splitter Splitter
}

// NewLocator creates a Locator using splitter.
func NewLocator(splitter Splitter) *Locator {
	return &Locator{splitter: splitter}
}

// Locate returns, in order, the sentences of text whose lowercase form
// contains the lowercase name. Runs of whitespace, newlines included, become
// single spaces. This is a substring match: "Ann Lee" also matches inside
// "Joann Leeds".
func (l *Locator) Locate(text, name string) []string {
	needle := strings.ToLower(collapse(name))
	if needle == "" || strings.TrimSpace(text) == "" {
		return nil
	}

	var found []string
	for _, s := range l.splitter.Split(text) {
		s = collapse(s)
		if s != "" && strings.Contains(strings.ToLower(s), needle) {
			found = append(found, s)
		}
	}
	return found
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
