package viz

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

const (
	cloudWidth   = 800
	cloudHeight  = 400
	cloudMaxWord = 60
	minFont      = 14.0
	maxFont      = 56.0
)

// viridis-like palette, dark to light.
var cloudPalette = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#b5a300"}

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all also am an and any are as at be
		because been before being below between both but by can could did do does doing down during each
		few for from further had has have having he her here hers herself him himself his how i if in into
		is it its itself just me more most my myself no nor not now of off on once only or other our ours
		ourselves out over own same she should so some such than that the their theirs them themselves then
		there these they this those through to too under until up very was we were what when where which
		while who whom why will with would you your yours yourself yourselves said says new one two
		year years last first people like get told according since may many much even still well back
		summary article could generated`) {
		stopwords[w] = true
	}
}

// CloudText joins the title and summary of every article, the input to the
// word cloud.
func CloudText(articles []models.ArticleReport) string {
	parts := make([]string, 0, 2*len(articles))
	for _, a := range articles {
		parts = append(parts, a.Title, a.Summary)
	}
	return strings.Join(parts, " ")
}

// WordFrequencies counts the words of text, lowercased, without stopwords or
// words shorter than three letters. Most frequent first, ties alphabetical.
func WordFrequencies(text string) []Count {
	byWord := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		w = strings.Trim(w, "'")
		w = strings.TrimSuffix(w, "'s")
		if utf8.RuneCountInString(w) < 3 || stopwords[w] {
			continue
		}
		byWord[w]++
	}

	counts := make([]Count, 0, len(byWord))
	for w, n := range byWord {
		counts = append(counts, Count{Label: w, N: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].N != counts[j].N {
			return counts[i].N > counts[j].N
		}
		return counts[i].Label < counts[j].Label
	})
	return counts
}

// WordCloud renders the most frequent words of text as an SVG image, words
// laid out left to right in rows with font size scaled by frequency.
func WordCloud(text string) []byte {
	counts := WordFrequencies(text)
	if len(counts) == 0 {
		return nil
	}
	if len(counts) > cloudMaxWord {
		counts = counts[:cloudMaxWord]
	}

	top, bottom := counts[0].N, counts[len(counts)-1].N
	size := func(n int) float64 {
		if top == bottom {
			return (minFont + maxFont) / 2
		}
		return minFont + (maxFont-minFont)*float64(n-bottom)/float64(top-bottom)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		cloudWidth, cloudHeight, cloudWidth, cloudHeight)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="#ffffff"/>`)

	const pad = 10.0
	x, y, rowHeight := pad, pad, 0.0
	for i, c := range counts {
		fs := size(c.N)
		// Approximate advance width of a sans-serif glyph.
		w := 0.6 * fs * float64(utf8.RuneCountInString(c.Label))
		if x+w > cloudWidth-pad && x > pad {
			x = pad
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+fs > cloudHeight-pad {
			break
		}
		if fs > rowHeight {
			rowHeight = fs
		}
		color := cloudPalette[i%len(cloudPalette)]
		fmt.Fprintf(&buf, `<text x="%.0f" y="%.0f" font-family="Helvetica, Arial, sans-serif" font-size="%.0f" fill="%s" dominant-baseline="hanging">%s</text>`,
			x, y, fs, color, html.EscapeString(c.Label))
		x += w + fs*0.4
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}
