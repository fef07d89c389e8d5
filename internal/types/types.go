// Package types provides shared domain types used across multiple packages.
// This package has no dependencies on other tome packages to avoid import cycles.
package types

import "time"

// PageVerdict is the classifier's judgment of a single scanned page.
// Verdicts are transient: they are consumed by the segmenter and never
// persisted individually.
type PageVerdict struct {
	IsStart         bool   `json:"is_start"`
	IsEnd           bool   `json:"is_end"`
	IsInventoryPage bool   `json:"is_inventory_page"`
	DocumentType    string `json:"document_type"`
	Title           string `json:"title"`
	Date            string `json:"date"` // raw classifier output, possibly empty or unparseable
}

// ContinuationVerdict is the safe fallback used when a page cannot be
// classified: the page is treated as an ordinary continuation of whatever
// document is currently open.
func ContinuationVerdict() PageVerdict {
	return PageVerdict{}
}

// LogicalDocument is a contiguous page range within a volume representing
// one procedural document (ruling, protocol, report, inventory, ...).
// Pages are 1-based and inclusive on both ends.
type LogicalDocument struct {
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	StartPage    int    `json:"start_page"`
	EndPage      int    `json:"end_page"`
	Date         string `json:"date,omitempty"` // raw; parsed at persistence time
}

// InventoryDocType is the document type assigned to collapsed
// inventory/manifest (opis) page runs.
const InventoryDocType = "inventory"

// Case is a legal case owning volumes and documents.
type Case struct {
	ID            int64     `json:"id"`
	CaseNumber    string    `json:"case_number"`
	Title         string    `json:"title"`
	Article       string    `json:"article,omitempty"`
	DefendantName string    `json:"defendant_name,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Volume is one scanned PDF binder of a case file.
type Volume struct {
	ID               int64     `json:"id"`
	CaseID           int64     `json:"case_id"`
	VolumeNumber     int       `json:"volume_number"`
	FileName         string    `json:"file_name"`
	FileSize         int64     `json:"file_size"`
	PageCount        int       `json:"page_count"`
	ProcessingStatus string    `json:"processing_status"` // pending, processing, completed, error
	CreatedAt        time.Time `json:"created_at"`
}

// ExtractionRun is an immutable record of one full segmentation execution
// over one volume. Runs are versioned per volume starting at 1; exactly one
// run per volume is current at any time.
type ExtractionRun struct {
	ID             int64     `json:"id"`
	VolumeID       int64     `json:"volume_id"`
	Version        int       `json:"version"`
	DocumentsCount int       `json:"documents_count"`
	TotalPages     int       `json:"total_pages"`
	CropRatio      float64   `json:"crop_ratio"`
	ModelUsed      string    `json:"model_used"`
	IsCurrent      bool      `json:"is_current"`
	CreatedAt      time.Time `json:"created_at"`
}

// Document is the durable counterpart of a LogicalDocument, owned by an
// extraction run. A re-extraction creates a new set under a new run; rows
// are never updated in place.
type Document struct {
	ID              int64      `json:"id"`
	CaseID          int64      `json:"case_id"`
	VolumeID        int64      `json:"volume_id"`
	ExtractionRunID int64      `json:"extraction_run_id"`
	DocType         string     `json:"doc_type"`
	Title           string     `json:"title"`
	StartPage       int        `json:"start_page"`
	EndPage         int        `json:"end_page"`
	DocumentDate    *time.Time `json:"document_date,omitempty"` // nil when the raw date did not parse
	CreatedAt       time.Time  `json:"created_at"`
}
