// Package extract drives one full segmentation run over a volume: render
// each page, ask the classifier for a verdict, feed the segmenter, and
// persist the result as a new versioned extraction run.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pvolkov/tome/internal/classify"
	"github.com/pvolkov/tome/internal/providers"
	"github.com/pvolkov/tome/internal/raster"
	"github.com/pvolkov/tome/internal/segment"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/types"
)

// Failure taxonomy. Page-level failures never surface here; a page that
// cannot be rendered or classified degrades to a continuation verdict and
// the run proceeds.
var (
	// ErrSourceUnreadable means the PDF could not be opened or page-counted.
	ErrSourceUnreadable = errors.New("source PDF unreadable")
	// ErrConfigurationMissing means no classifier client is available.
	ErrConfigurationMissing = errors.New("no LLM provider configured")
	// ErrPersistence means segmentation succeeded but the run could not be
	// stored.
	ErrPersistence = errors.New("persist extraction run")
)

// Renderer abstracts page rasterization so tests can run without poppler.
type Renderer interface {
	PageCount(path string) (int, error)
	RenderPage(path string, page int, opts raster.Options) ([]byte, error)
}

// PDFRenderer is the production Renderer backed by the raster package.
type PDFRenderer struct{}

func (PDFRenderer) PageCount(path string) (int, error) { return raster.PageCount(path) }

func (PDFRenderer) RenderPage(path string, page int, opts raster.Options) ([]byte, error) {
	return raster.RenderPage(path, page, opts)
}

// Config holds the extraction parameters recorded on each run.
type Config struct {
	Model         string
	CropRatio     float64
	RenderDPI     int
	JPEGQuality   int
	HistoryWindow int
	MaxTokens     int
	Temperature   float64
}

func (c Config) withDefaults() Config {
	if c.CropRatio <= 0 || c.CropRatio > 1 {
		c.CropRatio = raster.DefaultCropRatio
	}
	if c.RenderDPI <= 0 {
		c.RenderDPI = raster.DefaultDPI
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = raster.DefaultJPEGQuality
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = classify.DefaultHistoryWindow
	}
	return c
}

// Result is the outcome of one run: the stored run record and its documents.
// AnalyzedPages counts pages that went through the classifier loop; every
// page is analyzed even when its verdict degraded to continuation.
type Result struct {
	Run           *types.ExtractionRun `json:"run"`
	Documents     []types.Document     `json:"documents"`
	AnalyzedPages int                  `json:"analyzed_pages"`
}

// Runner executes extraction runs. It processes pages strictly sequentially:
// the rolling classifier history makes each verdict depend on the ones
// before it.
type Runner struct {
	store    *store.Store
	llm      providers.LLMClient
	renderer Renderer
	cfg      Config
	logger   *slog.Logger
}

// NewRunner builds a Runner. A nil renderer selects the production
// PDF renderer; a nil logger selects slog.Default.
func NewRunner(st *store.Store, llm providers.LLMClient, renderer Renderer, cfg Config, logger *slog.Logger) *Runner {
	if renderer == nil {
		renderer = PDFRenderer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    st,
		llm:      llm,
		renderer: renderer,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run executes a full extraction of the volume's PDF and returns the stored
// run. It is the synchronous counterpart of RunStream and produces identical
// results.
func (r *Runner) Run(ctx context.Context, volumeID int64, pdfPath string) (*Result, error) {
	return r.run(ctx, volumeID, pdfPath, nil)
}

// run is the single execution path shared by Run and RunStream. progress,
// when non-nil, is invoked after every classified page.
func (r *Runner) run(ctx context.Context, volumeID int64, pdfPath string, progress func(page, total int)) (*Result, error) {
	if r.llm == nil {
		return nil, ErrConfigurationMissing
	}
	if _, err := r.store.GetVolume(ctx, volumeID); err != nil {
		return nil, fmt.Errorf("volume %d: %w", volumeID, err)
	}

	total, err := r.renderer.PageCount(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	if err := r.store.UpdateVolumeStatus(ctx, volumeID, "processing"); err != nil {
		return nil, fmt.Errorf("mark volume processing: %w", err)
	}

	result, err := r.classifyAndPersist(ctx, volumeID, pdfPath, total, progress)

	status := "completed"
	if err != nil {
		status = "error"
	}
	// The write-back must land even when the run failed because ctx was
	// cancelled (an abandoned stream, say), or the volume sticks in
	// "processing" forever.
	if serr := r.store.UpdateVolumeStatus(context.WithoutCancel(ctx), volumeID, status); serr != nil {
		r.logger.Error("update volume status", "volume_id", volumeID, "status", status, "error", serr)
	}
	return result, err
}

func (r *Runner) classifyAndPersist(ctx context.Context, volumeID int64, pdfPath string, total int, progress func(page, total int)) (*Result, error) {
	classifier := classify.New(r.llm, classify.Config{
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	hist := classify.NewHistory(r.cfg.HistoryWindow)
	seg := segment.New()
	opts := raster.Options{
		DPI:         r.cfg.RenderDPI,
		CropRatio:   r.cfg.CropRatio,
		JPEGQuality: r.cfg.JPEGQuality,
	}

	for page := 1; page <= total; page++ {
		// Cancellation is checked between pages only; an in-flight
		// classification call is allowed to finish.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		verdict := r.classifyPage(ctx, classifier, hist, pdfPath, page, total, opts)
		seg.Feed(page, verdict)

		if progress != nil {
			progress(page, total)
		}
	}

	docs := seg.Finalize(total)
	run, err := r.store.CreateRun(ctx, store.RunParams{
		VolumeID:   volumeID,
		TotalPages: total,
		CropRatio:  r.cfg.CropRatio,
		ModelUsed:  r.cfg.Model,
		Documents:  docs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	stored, err := r.store.ListRunDocuments(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.logger.Info("extraction run complete",
		"volume_id", volumeID,
		"version", run.Version,
		"pages", total,
		"documents", len(stored))

	return &Result{Run: run, Documents: stored, AnalyzedPages: total}, nil
}

// classifyPage renders and classifies one page. Any failure degrades to the
// continuation verdict so a single bad page costs at most one merged
// boundary, never the run.
func (r *Runner) classifyPage(ctx context.Context, classifier *classify.Classifier, hist *classify.History, pdfPath string, page, total int, opts raster.Options) types.PageVerdict {
	image, err := r.renderer.RenderPage(pdfPath, page, opts)
	if err != nil {
		r.logger.Warn("page render failed, treating as continuation", "page", page, "error", err)
		return types.ContinuationVerdict()
	}

	verdict, err := classifier.ClassifyPage(ctx, image, page, total, hist)
	if err != nil {
		r.logger.Warn("page classification failed, treating as continuation", "page", page, "error", err)
		return types.ContinuationVerdict()
	}
	return verdict
}
