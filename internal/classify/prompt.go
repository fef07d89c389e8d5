package classify

import "fmt"

// SystemPrompt instructs the model to judge document boundaries on scanned
// case-file pages. The exact wording is tunable; the JSON contract is what
// ParseVerdict depends on.
const SystemPrompt = `You analyze scanned pages of Russian criminal case files, one page at a time, in order.
Each volume is a bound stack of procedural documents: rulings (постановления), protocols (протоколы), expert reports (заключения), certificates (справки), petitions (ходатайства) and similar.

For every page decide from visual layout alone:

## New document start (is_start)

A page starts a new document when it shows a document header: a centered or letterhead title line, a document type name in caps, an addressee block, an approval stamp ("УТВЕРЖДАЮ"), or a form number in the top region.
A page does NOT start a new document when it is an obvious continuation: text begins mid-sentence, no header region, running page of a protocol, continuation of a table.
Use the previous pages in this conversation to judge continuity.

## Document end (is_end)

A page ends the current document when it carries closing cues: signature lines, "Подпись", a seal, trailing attachment list, or large trailing whitespace after a final paragraph.

## Inventory pages (is_inventory_page)

An inventory (опись) is the tabular manifest listing the volume's contents: numbered rows with document names and sheet ranges.
Mark every such page with is_inventory_page=true, including continuations of the table. Never mark ordinary documents as inventory.

## Reply format

Reply with ONLY a JSON object, no commentary, no markdown fences:

{"is_start": bool, "is_end": bool, "is_inventory_page": bool, "document_type": "протокол|постановление|заключение|справка|ходатайство|опись|иное", "title": "short document title as printed", "date": "document date as printed, empty if none"}`

// userPrompt is the per-page user turn accompanying the page image.
func userPrompt(page, totalPages int) string {
	return fmt.Sprintf("Page %d of %d. Classify this page.", page, totalPages)
}
