package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
)

// snippetLen is the number of content runes shown under each result.
const snippetLen = 120

// ResultView is the JSON shape of one search result.
type ResultView struct {
	Rank       int           `json:"rank"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Author     string        `json:"author,omitempty"`
	CreatedAt  *time.Time    `json:"created_at,omitempty"`
	FinalScore float64       `json:"final_score"`
	Details    *ScoreDetails `json:"details,omitempty"`
}

// ScoreDetails is the score breakdown of one result.
type ScoreDetails struct {
	RRFScore     float64             `json:"rrf_score"`
	MethodScores search.MethodScores `json:"method_scores"`
	Boosts       search.Boosts       `json:"boosts"`
	BoostedScore float64             `json:"boosted_score"`
}

// ResultViews converts ranked results to their JSON shape. Details are
// attached only when requested.
func ResultViews(results []*search.RankedResult, details bool) []ResultView {
	views := make([]ResultView, 0, len(results))
	for i, r := range results {
		v := ResultView{
			Rank:       i + 1,
			ID:         r.Document.ID,
			Title:      r.Document.Title,
			Author:     r.Document.Author,
			CreatedAt:  r.Document.CreatedAt,
			FinalScore: r.FinalScore,
		}
		if details {
			v.Details = &ScoreDetails{
				RRFScore:     r.RRFScore,
				MethodScores: r.MethodScores,
				Boosts:       r.Boosts,
				BoostedScore: r.BoostedScore,
			}
		}
		views = append(views, v)
	}
	return views
}

// Results prints search results as text.
func (w *Writer) Results(query string, results []*search.RankedResult, details bool) {
	if len(results) == 0 {
		w.Statusf("🔍", "No results for %q", query)
		return
	}
	w.Statusf("🔍", "%d results for %q", len(results), query)
	w.Newline()

	s := w.styles
	for i, r := range results {
		_, _ = fmt.Fprintf(w.out, "%2d. %s %s\n",
			i+1, s.Title.Render(r.Document.Title), s.Score.Render(fmt.Sprintf("%.6f", r.FinalScore)))

		meta := []string{r.Document.ID}
		if r.Document.Author != "" {
			meta = append(meta, r.Document.Author)
		}
		if r.Document.CreatedAt != nil {
			meta = append(meta, r.Document.CreatedAt.Format("2006-01-02"))
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", s.Label.Render(strings.Join(meta, " · ")))

		if snip := snippet(r.Document.Content); snip != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", s.Dim.Render(snip))
		}
		if details {
			ms := r.MethodScores
			_, _ = fmt.Fprintf(w.out, "    %s title=%.6f body=%.6f fuzzy=%.6f semantic=%.6f rrf=%.6f\n",
				s.Label.Render("scores"), ms.Title, ms.Body, ms.Fuzzy, ms.Semantic, r.RRFScore)
			b := r.Boosts
			_, _ = fmt.Fprintf(w.out, "    %s recency=%.3f affinity=%.3f popularity=%.3f\n",
				s.Label.Render("boosts"), b.Recency, b.UserAffinity, b.Popularity)
		}
	}
}

// snippet collapses whitespace and truncates content for display.
func snippet(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "…"
}

// ReindexReport prints the outcome of a maintenance reindex.
func (w *Writer) ReindexReport(r *index.ReindexReport) {
	msg := fmt.Sprintf("Reindexed %d/%d documents in %s", r.Indexed, r.Total, r.Duration.Round(time.Millisecond))
	if len(r.Failed) == 0 {
		w.Success(msg)
	} else {
		w.Warning(msg)
	}
	if r.Fallbacks > 0 {
		w.Warningf("%d documents indexed without embeddings (provider unavailable)", r.Fallbacks)
	}
	for _, f := range r.Failed {
		w.Statusf("", "%s: %s", f.DocumentID, f.Error)
	}
}

// CheckResult prints a consistency check.
func (w *Writer) CheckResult(r *index.CheckResult) {
	if r.Consistent() {
		w.Successf("Index consistent: %d documents, %d records", r.Documents, r.Records)
		return
	}
	w.Warningf("%d inconsistencies: %d documents, %d records", len(r.Inconsistencies), r.Documents, r.Records)
	for _, i := range r.Inconsistencies {
		w.Statusf("", "%s %s", i.Type, i.DocumentID)
	}
}
