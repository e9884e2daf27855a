package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type heuristic struct {
	name string
	cuts func(text string) []int
}

// heuristics are tried in priority order; on equal scores the earlier one wins.
var heuristics = []heuristic{
	{name: "header", cuts: headerCuts},
	{name: "paragraph", cuts: paragraphCuts},
	{name: "sentence", cuts: sentenceCuts},
	{name: "punctuation", cuts: punctuationCuts},
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)
	sentenceBreak  = regexp.MustCompile(`\.\s+[A-Z]`)
	terminalPunct  = regexp.MustCompile(`[.!?]+`)
)

// headerCuts returns the line offsets of every markdown heading.
func headerCuts(src string) []int {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	var cuts []int
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := node.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		pos := heading.Lines().At(0).Start
		lineStart := strings.LastIndexByte(src[:pos], '\n') + 1
		if lineStart > 0 {
			cuts = append(cuts, lineStart)
		}
		return ast.WalkSkipChildren, nil
	})
	sort.Ints(cuts)
	return cuts
}

func paragraphCuts(src string) []int {
	var cuts []int
	for _, loc := range paragraphBreak.FindAllStringIndex(src, -1) {
		cuts = append(cuts, loc[1])
	}
	return cuts
}

// sentenceCuts cuts before the capital letter that follows a period.
func sentenceCuts(src string) []int {
	var cuts []int
	for _, loc := range sentenceBreak.FindAllStringIndex(src, -1) {
		cuts = append(cuts, loc[1]-1)
	}
	return cuts
}

func punctuationCuts(src string) []int {
	var cuts []int
	for _, loc := range terminalPunct.FindAllStringIndex(src, -1) {
		cuts = append(cuts, loc[1])
	}
	return cuts
}
