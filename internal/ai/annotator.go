package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// Fixed texts substituted when the model is not called or fails.
const (
	SummaryFallback  = "Summary could not be generated."
	NoMentionsText   = "No mentions found."
	ClassifyFallback = "Sentiment could not be determined."
)

const (
	summaryTemperature  = 0.5
	classifyTemperature = 0
)

const summarySystemPrompt = `You are a news summarizer. Output ONLY a neutral two-sentence summary of the article.

RULES:
- Exactly two sentences
- Be factual and neutral, no opinions
- Output ONLY the summary text, nothing else
- Do NOT explain what you are doing or add commentary`

const classifySystemPrompt = `You judge how news coverage portrays a person.
You receive the person's name and the sentences of one article that mention them.
Classify the overall sentiment toward the person as Positive, Negative or Neutral.

Respond with ONLY a JSON object:
{"sentiment": "Positive" | "Negative" | "Neutral", "justification": "<one sentence>"}`

const sentimentSchema = `{
  "type": "object",
  "properties": {
    "sentiment": {"type": "string", "enum": ["Positive", "Negative", "Neutral"]},
    "justification": {"type": "string"}
  },
  "required": ["sentiment", "justification"],
  "additionalProperties": false
}`

// Classification is the sentiment verdict for one article.
type Classification struct {
	Sentiment     models.Sentiment
	Justification string
	// Text is the human-readable verdict shown in reports.
	Text string
}

// Annotator produces summaries and sentiment labels with an LLM.
type Annotator struct {
	llm      Completer
	maxChars int
}

// NewAnnotator creates an Annotator. Article text longer than maxChars runes
// is truncated before summarizing; 0 disables truncation.
func NewAnnotator(llm Completer, maxChars int) *Annotator {
	return &Annotator{llm: llm, maxChars: maxChars}
}

// Summarize returns a two-sentence summary of text. Any failure yields
// SummaryFallback.
func (a *Annotator) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return SummaryFallback
	}
	if a.maxChars > 0 && utf8.RuneCountInString(text) > a.maxChars {
		text = string([]rune(text)[:a.maxChars])
	}

	resp, err := a.llm.Complete(ctx, Request{
		System:      summarySystemPrompt,
		Prompt:      text,
		Temperature: summaryTemperature,
	})
	if err != nil {
		slog.Warn("annotator: summarize failed", "err", err)
		return SummaryFallback
	}

	summary := cleanAIResponse(resp)
	if summary == "" {
		slog.Warn("annotator: summary rejected", "response", resp)
		return SummaryFallback
	}
	return summary
}

// Classify labels the sentiment of mentions toward name. With no mentions the
// model is not called and the verdict is NoMentionsText.
func (a *Annotator) Classify(ctx context.Context, name string, mentions []string) Classification {
	if len(mentions) == 0 {
		return Classification{
			Sentiment:     models.BucketSentiment(NoMentionsText),
			Justification: NoMentionsText,
			Text:          NoMentionsText,
		}
	}

	prompt := fmt.Sprintf("Person: %s\n\nSentences:\n- %s", name, strings.Join(mentions, "\n- "))
	resp, err := a.llm.Complete(ctx, Request{
		System:      classifySystemPrompt,
		Prompt:      prompt,
		Temperature: classifyTemperature,
		JSON:        true,
		Schema:      sentimentSchema,
	})
	if err != nil {
		slog.Warn("annotator: classify failed", "person", name, "err", err)
		return Classification{
			Sentiment:     models.BucketSentiment(ClassifyFallback),
			Justification: ClassifyFallback,
			Text:          ClassifyFallback,
		}
	}
	return parseClassification(resp)
}

type sentimentJSON struct {
	Sentiment     string `json:"sentiment"`
	Justification string `json:"justification"`
}

// parseClassification reads the structured verdict. A label outside the enum
// becomes Neutral. When the response is not a valid object the free text is
// bucketed by substring instead.
func parseClassification(resp string) Classification {
	resp = strings.TrimSpace(resp)

	if obj := jsonObject(resp); obj != "" {
		var v sentimentJSON
		if err := json.Unmarshal([]byte(obj), &v); err == nil {
			s, ok := models.ParseSentiment(v.Sentiment)
			if !ok {
				slog.Debug("annotator: label outside enum", "label", v.Sentiment)
				s = models.SentimentNeutral
			}
			just := strings.TrimSpace(v.Justification)
			return Classification{
				Sentiment:     s,
				Justification: just,
				Text:          fmt.Sprintf("Sentiment: %s. Justification: %s", s, just),
			}
		}
	}

	just := resp
	if i := strings.Index(resp, "Justification:"); i >= 0 {
		just = strings.TrimSpace(resp[i+len("Justification:"):])
	}
	return Classification{
		Sentiment:     models.BucketSentiment(resp),
		Justification: just,
		Text:          resp,
	}
}

// jsonObject returns the outermost {...} span of s, which tolerates code
// fences and surrounding prose.
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// garbagePatterns indicate the model returned commentary instead of a
// summary. They match case-insensitively at the start of the response.
var garbagePatterns = []string{
	"i cannot",
	"i can't",
	"i don't have",
	"i'm sorry",
	"as an ai",
	"there is no information",
	"please provide",
	"no information about",
	"the provided text does not",
}

// cleanAIResponse strips wrapping quotes and a "Summary:" label. It returns
// "" when the response is commentary.
func cleanAIResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "summary:") {
		s = s[len("summary:"):]
	}
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	for _, pattern := range garbagePatterns {
		if strings.HasPrefix(lower, pattern) {
			return ""
		}
	}
	return s
}
