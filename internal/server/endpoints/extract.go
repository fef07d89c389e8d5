package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/internal/extract"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/svcctx"
)

// buildRunner assembles an extraction runner from the request context. It
// resolves the configured LLM provider and extraction settings, returning an
// HTTP status and message on failure.
func buildRunner(r *http.Request, volumeID int64) (*extract.Runner, string, int, string) {
	st := svcctx.StoreFrom(r.Context())
	registry := svcctx.RegistryFrom(r.Context())
	cfgMgr := svcctx.ConfigFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	if registry == nil || cfgMgr == nil || homeDir == nil {
		return nil, "", http.StatusServiceUnavailable, "server not fully initialized"
	}

	if _, err := st.GetVolume(r.Context(), volumeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", http.StatusNotFound, "volume not found"
		}
		return nil, "", http.StatusInternalServerError, err.Error()
	}

	pdfPath := homeDir.VolumePDFPath(volumeID)
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, "", http.StatusConflict, "volume PDF is missing from storage"
	}

	cfg := cfgMgr.Get()
	llm, err := registry.GetLLM(cfg.Extraction.Provider)
	if err != nil {
		return nil, "", http.StatusServiceUnavailable,
			fmt.Sprintf("LLM provider %q not available: %v", cfg.Extraction.Provider, err)
	}

	runner := extract.NewRunner(st, llm, nil, extract.Config{
		Model:         cfg.ExtractionModel(),
		CropRatio:     cfg.Extraction.CropRatio,
		RenderDPI:     cfg.Extraction.RenderDPI,
		JPEGQuality:   cfg.Extraction.JPEGQuality,
		HistoryWindow: cfg.Extraction.HistoryWindow,
	}, logger)

	return runner, pdfPath, 0, ""
}

// extractErrorStatus maps runner failures to HTTP status codes.
func extractErrorStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrSourceUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ExtractEndpoint handles POST /api/volumes/{id}/extract. It runs the full
// segmentation synchronously and returns the new run with its documents.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/volumes/{id}/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	runner, pdfPath, status, msg := buildRunner(r, id)
	if runner == nil {
		writeError(w, status, msg)
		return
	}

	result, err := runner.Run(r.Context(), id, pdfPath)
	if err != nil {
		writeError(w, extractErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes-extract <id>",
		Short: "Segment a volume into logical documents",
		Long: `Runs the full extraction pipeline over a volume: renders every page,
classifies it with the configured vision model, and stores the resulting
document boundaries as a new versioned extraction run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp extract.Result
			if err := client.Post(cmd.Context(), "/api/volumes/"+args[0]+"/extract", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
