package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Saul-Punybz/mentionwatch/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps "txt"/"text" and "pdf" to a Format. Anything else is
// reported as invalid.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text":
		return FormatText, true
	case "pdf":
		return FormatPDF, true
	}
	return "", false
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Render writes r to w in format f.
func Render(w io.Writer, r *models.Report, f Format) error {
	if f == FormatPDF {
		return RenderPDF(w, r)
	}
	_, err := io.WriteString(w, RenderText(r))
	return err
}

const longDate = "Monday, January 02, 2006"

func title(r *models.Report) string {
	return "News Report for " + r.PersonName
}

// RenderText flattens r into the plain-text export.
func RenderText(r *models.Report) string {
	var sb strings.Builder
	sb.WriteString(title(r))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Date: %s\n\n", r.Date.Format(longDate))
	sb.WriteString(body(r))
	return sb.String()
}

// body is everything below the title block.
func body(r *models.Report) string {
	var sb strings.Builder

	counts := r.SentimentCounts()
	fmt.Fprintf(&sb, "Analyzed articles: %d\n", len(r.Articles))
	fmt.Fprintf(&sb, "Sentiment: Positive %d, Negative %d, Neutral %d\n",
		counts[models.SentimentPositive], counts[models.SentimentNegative], counts[models.SentimentNeutral])
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "Warning: %s\n", w)
	}

	for i, a := range r.Articles {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("=", 60))
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%d. %s\n", i+1, a.Title)
		fmt.Fprintf(&sb, "URL: %s\n", a.URL)
		if d := a.Domain(); d != "" {
			fmt.Fprintf(&sb, "Source: %s\n", d)
		}
		fmt.Fprintf(&sb, "\nSummary: %s\n", a.Summary)
		fmt.Fprintf(&sb, "\nSentiment: %s\n", a.Sentiment)
		if a.Justification != "" {
			fmt.Fprintf(&sb, "Justification: %s\n", a.Justification)
		}
		if len(a.Mentions) > 0 {
			sb.WriteString("\nMentions:\n")
			for _, m := range a.Mentions {
				fmt.Fprintf(&sb, "  - %s\n", m)
			}
		}
	}

	writeRefs(&sb, "Google News mentions that could not be analyzed", r.UnanalyzedGoogle)
	writeRefs(&sb, "NewsAPI articles that could not be analyzed", r.FailedNewsAPI)
	return sb.String()
}

func writeRefs(sb *strings.Builder, heading string, refs []models.LinkRef) {
	if len(refs) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	fmt.Fprintf(sb, "\n%s:\n", heading)
	for _, ref := range refs {
		t := ref.Title
		if t == "" {
			t = ref.URL
		}
		fmt.Fprintf(sb, "- %s\n  %s\n", t, ref.URL)
	}
}

// RenderPDF writes r as an A4 PDF. Text outside cp1252 is replaced by the
// core font translator.
func RenderPDF(w io.Writer, r *models.Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title(r), true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title(r)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, tr("Date: "+r.Date.Format(longDate)), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(body(r)), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	return nil
}
