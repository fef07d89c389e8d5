package classify

import "testing"

func TestParseVerdictCleanJSON(t *testing.T) {
	v, err := ParseVerdict(`{"is_start": true, "is_end": false, "is_inventory_page": false, "document_type": "протокол", "title": "Протокол допроса", "date": "12.03.2021"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart || v.IsEnd || v.IsInventoryPage {
		t.Fatalf("flags wrong: %+v", v)
	}
	if v.DocumentType != "протокол" || v.Title != "Протокол допроса" || v.Date != "12.03.2021" {
		t.Fatalf("fields wrong: %+v", v)
	}
}

func TestParseVerdictCodeFence(t *testing.T) {
	raw := "```json\n{\"is_start\": true, \"title\": \"x\"}\n```"
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart || v.Title != "x" {
		t.Fatalf("parsed wrong: %+v", v)
	}
}

func TestParseVerdictSurroundingCommentary(t *testing.T) {
	raw := `Looking at this page, it clearly begins a new document.

{"is_start": true, "is_end": false, "is_inventory_page": false, "document_type": "ruling", "title": "", "date": ""}

Let me know if you need more detail.`
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart || v.DocumentType != "ruling" {
		t.Fatalf("parsed wrong: %+v", v)
	}
}

func TestParseVerdictBracesInCommentary(t *testing.T) {
	// Trailing commentary with its own braces must not extend the
	// candidate past the first balanced object.
	raw := `{"is_start": true, "title": "Справка {форма 1}"}

Note: the header matches the {form} template used for certificates.`
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart || v.Title != "Справка {форма 1}" {
		t.Fatalf("parsed wrong: %+v", v)
	}
}

func TestParseVerdictEscapedQuoteInString(t *testing.T) {
	v, err := ParseVerdict(`{"is_start": true, "title": "Протокол \"осмотра\""}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Title != `Протокол "осмотра"` {
		t.Fatalf("parsed wrong: %+v", v)
	}
}

func TestParseVerdictMissingFieldsDefaultFalse(t *testing.T) {
	v, err := ParseVerdict(`{"is_inventory_page": true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IsStart || v.IsEnd || !v.IsInventoryPage {
		t.Fatalf("defaults wrong: %+v", v)
	}
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"the page is a continuation",
		"{not json at all",
		`{"is_start": "yes"}`, // wrong type
		"[1,2,3]",
	}
	for _, raw := range cases {
		if _, err := ParseVerdict(raw); err == nil {
			t.Errorf("ParseVerdict(%q) should fail", raw)
		}
	}
}

func TestParseVerdictToleratesExtraFields(t *testing.T) {
	v, err := ParseVerdict(`{"is_start": true, "confidence": 0.93, "reasoning": "header present"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart {
		t.Fatalf("parsed wrong: %+v", v)
	}
}
