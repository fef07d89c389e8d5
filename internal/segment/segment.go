// Package segment implements the document-boundary state machine.
//
// It consumes per-page classifier verdicts strictly in page order and
// produces the ordered list of logical documents for a volume. The machine
// is pure: feeding it the same verdict sequence twice yields identical
// results, which is what makes the pipeline replayable in tests.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pvolkov/tome/internal/types"
)

// DefaultTitle is used when the classifier supplies no usable title and no
// document type to fall back on.
const DefaultTitle = "Document"

// InventoryTitle is the title of the synthetic document that an
// inventory/manifest (opis) page run collapses into.
const InventoryTitle = "Case file inventory"

// Segmenter tracks cross-page state while verdicts stream in.
// The zero value is ready to use.
type Segmenter struct {
	current      *types.LogicalDocument
	insideInv    bool
	invStartPage int
	docs         []types.LogicalDocument
}

// New returns a fresh Segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// Feed advances the machine by one page. Pages must be fed in strictly
// increasing order starting at 1.
func (s *Segmenter) Feed(page int, v types.PageVerdict) {
	// Rule 1: inventory pages. A run of inventory pages collapses into a
	// single document, so only the first page of the run changes state.
	if v.IsInventoryPage {
		if !s.insideInv {
			s.closeCurrent(page - 1)
			s.insideInv = true
			s.invStartPage = page
		}
		return
	}

	// Rule 2: leaving an inventory block. Only a genuine document header
	// ends the block; an unflagged page inside it counts as continuation.
	if s.insideInv {
		if !v.IsStart {
			return
		}
		s.appendInventory(page - 1)
	}

	// Rule 3: advisory end flag. Provisionally closes the open document;
	// the next document's start page remains authoritative (post-pass).
	if v.IsEnd && s.current != nil {
		s.current.EndPage = page
	}

	// Rule 4: new document header.
	if v.IsStart {
		if s.current != nil {
			if s.current.EndPage < page {
				s.current.EndPage = page
			}
			s.docs = append(s.docs, *s.current)
		}
		s.current = &types.LogicalDocument{
			Title:        NormalizeTitle(v.Title, v.DocumentType),
			DocumentType: v.DocumentType,
			StartPage:    page,
			EndPage:      page,
			Date:         strings.TrimSpace(v.Date),
		}
	}

	// Rule 5: ordinary continuation, no state change.
}

// Finalize closes any open state at end of stream and returns the full
// document list. The returned ranges are contiguous and cover
// [1, totalPages] whenever at least one document was opened.
func (s *Segmenter) Finalize(totalPages int) []types.LogicalDocument {
	if s.insideInv {
		s.appendInventory(totalPages)
	}
	if s.current != nil {
		if s.current.EndPage < totalPages {
			s.current.EndPage = totalPages
		}
		s.docs = append(s.docs, *s.current)
		s.current = nil
	}

	// Leading pages with no recognized header (page 1 degraded to a
	// continuation verdict, say) belong to the first document.
	if len(s.docs) > 0 && s.docs[0].StartPage > 1 {
		s.docs[0].StartPage = 1
	}

	// Post-pass: the next document's start is authoritative for the end of
	// the one before it. This absorbs drift from advisory end flags.
	for i := 0; i < len(s.docs)-1; i++ {
		s.docs[i].EndPage = s.docs[i+1].StartPage - 1
	}
	if n := len(s.docs); n > 0 {
		last := &s.docs[n-1]
		if last.EndPage > totalPages {
			last.EndPage = totalPages
		}
		if last.EndPage < last.StartPage {
			last.EndPage = last.StartPage
		}
	}

	return s.docs
}

// Run replays a complete verdict sequence through a fresh machine.
// Verdicts are taken to be pages 1..len(verdicts).
func Run(verdicts []types.PageVerdict) []types.LogicalDocument {
	s := New()
	for i, v := range verdicts {
		s.Feed(i+1, v)
	}
	return s.Finalize(len(verdicts))
}

// closeCurrent appends the open document, if any, ending at endPage.
func (s *Segmenter) closeCurrent(endPage int) {
	if s.current == nil {
		return
	}
	if s.current.EndPage < endPage {
		s.current.EndPage = endPage
	}
	if s.current.EndPage < s.current.StartPage {
		s.current.EndPage = s.current.StartPage
	}
	s.docs = append(s.docs, *s.current)
	s.current = nil
}

// appendInventory closes the open inventory block as one synthetic document.
func (s *Segmenter) appendInventory(endPage int) {
	if endPage < s.invStartPage {
		endPage = s.invStartPage
	}
	s.docs = append(s.docs, types.LogicalDocument{
		Title:        InventoryTitle,
		DocumentType: types.InventoryDocType,
		StartPage:    s.invStartPage,
		EndPage:      endPage,
	})
	s.insideInv = false
	s.invStartPage = 0
}

// NormalizeTitle trims the classifier-supplied title and capitalizes its
// first letter. Empty titles fall back to the document type, then to the
// generic default label.
func NormalizeTitle(title, docType string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		t = strings.TrimSpace(docType)
	}
	if t == "" {
		return DefaultTitle
	}
	r, size := utf8.DecodeRuneInString(t)
	if r == utf8.RuneError {
		return t
	}
	return string(unicode.ToUpper(r)) + t[size:]
}
