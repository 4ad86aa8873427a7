package pagesplit

import (
	"strings"

	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// DefaultBlankThreshold is the normalized-text length below which a page is
// considered blank.
const DefaultBlankThreshold = 20

var blankMarkers = map[string]struct{}{
	"[blank]":      {},
	"[empty page]": {},
	"[no text]":    {},
	"blank page":   {},
}

var intentionallyBlankPhrases = []string{
	"intentionally blank",
	"intentionally left blank",
}

// IsBlankPage decides blankness from a page's extracted text, not its
// pixels. Pages carrying only faint watermark text can be misjudged as
// blank; known limitation.
func IsBlankPage(text string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultBlankThreshold
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if len(normalized) < threshold {
		return true
	}
	if _, ok := blankMarkers[normalized]; ok {
		return true
	}
	for _, phrase := range intentionallyBlankPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// FilterBlankPages removes blank pages from every group and drops groups
// that end up empty. Pure function: inputs are not mutated, and running it
// twice yields the same retained page set. pageTexts is indexed by page
// number minus one; pages outside the text range are kept (no evidence of
// blankness).
func FilterBlankPages(groups []entity.SplitDocument, pageTexts []string, threshold int) []entity.SplitDocument {
	out := make([]entity.SplitDocument, 0, len(groups))
	for _, g := range groups {
		kept := make([]int, 0, len(g.Pages))
		for _, page := range g.Pages {
			if page >= 1 && page <= len(pageTexts) && IsBlankPage(pageTexts[page-1], threshold) {
				continue
			}
			kept = append(kept, page)
		}
		if len(kept) == 0 {
			continue
		}
		filtered := g
		filtered.Pages = kept
		out = append(out, filtered)
	}
	return out
}
