package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/docmind/internal/model"
)

func themePrompt(c *corpus) string {
	return "Identify the recurring themes across these documents.\n\n" + describeDocs(c, sortedIDs(c))
}

func progressionPrompt(c *corpus) string {
	var sb strings.Builder
	sb.WriteString("These documents are listed oldest first. Describe how the ideas progress over time.\n\n")
	sb.WriteString(describeDocs(c, chronological(c)))
	return sb.String()
}

func synthesisPrompt(c *corpus) string {
	var sb strings.Builder
	sb.WriteString("Propose syntheses that combine ideas from related documents.\n\n")
	sb.WriteString(describeDocs(c, sortedIDs(c)))
	if len(c.clusters) > 0 {
		sb.WriteString("\nStrongly related groups:\n")
		for _, cl := range c.clusters {
			fmt.Fprintf(&sb, "- %s\n", strings.Join(cl, ", "))
		}
	}
	if hubs := hubs(c, 3); len(hubs) > 0 {
		fmt.Fprintf(&sb, "\nCentral documents: %s\n", strings.Join(hubs, ", "))
	}
	return sb.String()
}

func gapPrompt(c *corpus) string {
	var sb strings.Builder
	sb.WriteString("Point out knowledge gaps: topics mentioned but never developed, and documents disconnected from the rest.\n\n")
	sb.WriteString(describeDocs(c, sortedIDs(c)))
	if isolated := isolatedDocs(c); len(isolated) > 0 {
		fmt.Fprintf(&sb, "\nDocuments with no relationships: %s\n", strings.Join(isolated, ", "))
	}
	return sb.String()
}

// heuristicThemes reports concepts shared by at least two documents.
func heuristicThemes(c *corpus) []model.Insight {
	owners := make(map[string][]string)
	for _, id := range sortedIDs(c) {
		for _, term := range c.concepts[id] {
			owners[term] = append(owners[term], id)
		}
	}
	terms := make([]string, 0, len(owners))
	for term, ids := range owners {
		if len(ids) >= 2 {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(owners[terms[i]]) != len(owners[terms[j]]) {
			return len(owners[terms[i]]) > len(owners[terms[j]])
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 3 {
		terms = terms[:3]
	}
	out := make([]model.Insight, 0, len(terms))
	for _, term := range terms {
		ids := owners[term]
		out = append(out, model.Insight{
			Type:        model.InsightTheme,
			Title:       "Recurring concept: " + term,
			Description: fmt.Sprintf("%q appears in %d of %d documents.", term, len(ids), len(c.docs)),
			DocumentIDs: ids,
			Confidence:  0.5 * float64(len(ids)) / float64(len(c.docs)),
		})
	}
	return out
}

func heuristicProgression(c *corpus) []model.Insight {
	if len(c.docs) < 2 {
		return nil
	}
	ordered := chronological(c)
	titles := make([]string, 0, len(ordered))
	for _, id := range ordered {
		titles = append(titles, displayName(c.byID[id]))
	}
	return []model.Insight{{
		Type:        model.InsightProgression,
		Title:       "Chronological reading order",
		Description: strings.Join(titles, " -> "),
		DocumentIDs: ordered,
		Confidence:  0.3,
	}}
}

func heuristicSynthesis(c *corpus) []model.Insight {
	out := make([]model.Insight, 0, len(c.clusters))
	for _, cl := range c.clusters {
		names := make([]string, 0, len(cl))
		for _, id := range cl {
			names = append(names, displayName(c.byID[id]))
		}
		out = append(out, model.Insight{
			Type:        model.InsightSynthesis,
			Title:       fmt.Sprintf("Closely related group of %d documents", len(cl)),
			Description: "Strong relationships connect " + strings.Join(names, ", ") + ".",
			DocumentIDs: cl,
			Confidence:  0.4,
		})
	}
	return out
}

func heuristicGaps(c *corpus) []model.Insight {
	isolated := isolatedDocs(c)
	if len(isolated) == 0 || len(c.docs) < 2 {
		return nil
	}
	return []model.Insight{{
		Type:        model.InsightGap,
		Title:       "Documents without relationships",
		Description: fmt.Sprintf("%d of %d documents are not connected to any other document.", len(isolated), len(c.docs)),
		DocumentIDs: isolated,
		Confidence:  0.3,
	}}
}

func chronological(c *corpus) []string {
	docs := append([]*model.Document(nil), c.docs...)
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Ctime != docs[j].Ctime {
			return docs[i].Ctime < docs[j].Ctime
		}
		return docs[i].ID < docs[j].ID
	})
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

// hubs returns up to n documents with non-zero betweenness, highest first.
func hubs(c *corpus, n int) []string {
	var ids []string
	for id, m := range c.metrics {
		if m.Betweenness > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := c.metrics[ids[i]].Betweenness, c.metrics[ids[j]].Betweenness
		if bi != bj {
			return bi > bj
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

func isolatedDocs(c *corpus) []string {
	var out []string
	for _, id := range sortedIDs(c) {
		m := c.metrics[id]
		if m.InDegree == 0 && m.OutDegree == 0 {
			out = append(out, id)
		}
	}
	return out
}

func displayName(d *model.Document) string {
	if d == nil {
		return ""
	}
	if d.Title != "" {
		return d.Title
	}
	return d.ID
}
