package endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/svcctx"
	"github.com/pvolkov/tome/internal/types"
)

// RunWithDocuments pairs a run record with its document list.
type RunWithDocuments struct {
	Run       *types.ExtractionRun `json:"run"`
	Documents []types.Document     `json:"documents"`
}

// loadRunWithDocuments attaches a run's documents or writes an error.
func loadRunWithDocuments(w http.ResponseWriter, r *http.Request, run *types.ExtractionRun) {
	st := svcctx.StoreFrom(r.Context())
	docs, err := st.ListRunDocuments(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RunWithDocuments{Run: run, Documents: docs})
}

// ListRunsResponse is the response for listing a volume's run history.
type ListRunsResponse struct {
	Runs []types.ExtractionRun `json:"runs"`
}

// ListRunsEndpoint handles GET /api/volumes/{id}/runs.
type ListRunsEndpoint struct{}

var _ api.Endpoint = (*ListRunsEndpoint)(nil)

func (e *ListRunsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}/runs", e.handler
}

func (e *ListRunsEndpoint) RequiresInit() bool { return true }

func (e *ListRunsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if _, err := st.GetVolume(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "volume not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	runs, err := st.ListRunHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs})
}

func (e *ListRunsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs-list <volume-id>",
		Short: "List extraction run history of a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListRunsResponse
			if err := client.Get(cmd.Context(), "/api/volumes/"+args[0]+"/runs", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CurrentRunEndpoint handles GET /api/volumes/{id}/runs/current.
type CurrentRunEndpoint struct{}

func (e *CurrentRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}/runs/current", e.handler
}

func (e *CurrentRunEndpoint) RequiresInit() bool { return true }

func (e *CurrentRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	run, err := st.GetCurrentRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "volume has no extraction runs")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	loadRunWithDocuments(w, r, run)
}

func (e *CurrentRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs-current <volume-id>",
		Short: "Get the current extraction run of a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunWithDocuments
			if err := client.Get(cmd.Context(), "/api/volumes/"+args[0]+"/runs/current", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RunByVersionEndpoint handles GET /api/volumes/{id}/runs/{version}.
type RunByVersionEndpoint struct{}

func (e *RunByVersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}/runs/{version}", e.handler
}

func (e *RunByVersionEndpoint) RequiresInit() bool { return true }

func (e *RunByVersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run version")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	run, err := st.GetRunByVersion(r.Context(), id, version)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	loadRunWithDocuments(w, r, run)
}

func (e *RunByVersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs-get <volume-id> <version>",
		Short: "Get a specific extraction run of a volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunWithDocuments
			path := "/api/volumes/" + args[0] + "/runs/" + args[1]
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListDocumentsResponse is the response for listing a volume's documents.
type ListDocumentsResponse struct {
	Documents []types.Document `json:"documents"`
}

// ListDocumentsEndpoint handles GET /api/volumes/{id}/documents. It returns
// the documents of the volume's current run.
type ListDocumentsEndpoint struct{}

func (e *ListDocumentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}/documents", e.handler
}

func (e *ListDocumentsEndpoint) RequiresInit() bool { return true }

func (e *ListDocumentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	run, err := st.GetCurrentRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "volume has no extraction runs")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	docs, err := st.ListRunDocuments(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListDocumentsResponse{Documents: docs})
}

func (e *ListDocumentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "documents-list <volume-id>",
		Short: "List documents of a volume's current extraction run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListDocumentsResponse
			if err := client.Get(cmd.Context(), "/api/volumes/"+args[0]+"/documents", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
