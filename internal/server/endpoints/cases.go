package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/svcctx"
	"github.com/pvolkov/tome/internal/types"
)

// parseID extracts a positive integer path value or writes a 400.
func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw))
		return 0, false
	}
	return id, true
}

// CreateCaseRequest is the body for creating a case.
type CreateCaseRequest struct {
	CaseNumber    string `json:"case_number"`
	Title         string `json:"title"`
	Article       string `json:"article,omitempty"`
	DefendantName string `json:"defendant_name,omitempty"`
}

// CreateCaseEndpoint handles POST /api/cases.
type CreateCaseEndpoint struct{}

var _ api.Endpoint = (*CreateCaseEndpoint)(nil)

func (e *CreateCaseEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cases", e.handler
}

func (e *CreateCaseEndpoint) RequiresInit() bool { return true }

func (e *CreateCaseEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.CaseNumber == "" {
		writeError(w, http.StatusBadRequest, "case_number is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	c, err := st.CreateCase(r.Context(), types.Case{
		CaseNumber:    req.CaseNumber,
		Title:         req.Title,
		Article:       req.Article,
		DefendantName: req.DefendantName,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (e *CreateCaseEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, article, defendant string
	cmd := &cobra.Command{
		Use:   "cases-create <case-number>",
		Short: "Create a new case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := CreateCaseRequest{
				CaseNumber:    args[0],
				Title:         title,
				Article:       article,
				DefendantName: defendant,
			}
			var resp types.Case
			if err := client.Post(cmd.Context(), "/api/cases", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Case title")
	cmd.Flags().StringVar(&article, "article", "", "Criminal code article")
	cmd.Flags().StringVar(&defendant, "defendant", "", "Defendant name")
	return cmd
}

// ListCasesResponse is the response for listing cases.
type ListCasesResponse struct {
	Cases []types.Case `json:"cases"`
}

// ListCasesEndpoint handles GET /api/cases.
type ListCasesEndpoint struct{}

func (e *ListCasesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cases", e.handler
}

func (e *ListCasesEndpoint) RequiresInit() bool { return true }

func (e *ListCasesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	cases, err := st.ListCases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListCasesResponse{Cases: cases})
}

func (e *ListCasesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cases-list",
		Short: "List all cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListCasesResponse
			if err := client.Get(cmd.Context(), "/api/cases", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetCaseEndpoint handles GET /api/cases/{id}.
type GetCaseEndpoint struct{}

func (e *GetCaseEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cases/{id}", e.handler
}

func (e *GetCaseEndpoint) RequiresInit() bool { return true }

func (e *GetCaseEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	c, err := st.GetCase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (e *GetCaseEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cases-get <id>",
		Short: "Get a case by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.Case
			if err := client.Get(cmd.Context(), "/api/cases/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteCaseEndpoint handles DELETE /api/cases/{id}.
type DeleteCaseEndpoint struct{}

func (e *DeleteCaseEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/cases/{id}", e.handler
}

func (e *DeleteCaseEndpoint) RequiresInit() bool { return true }

func (e *DeleteCaseEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())

	// Collect volume IDs first so stored PDFs can be removed after the
	// cascade delete.
	volumes, err := st.ListVolumes(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := st.DeleteCase(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h := svcctx.HomeFrom(r.Context()); h != nil {
		for _, v := range volumes {
			if err := h.RemoveVolumePDF(v.ID); err != nil {
				if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
					logger.Warn("failed to remove volume PDF", "volume_id", v.ID, "error", err)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (e *DeleteCaseEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cases-delete <id>",
		Short: "Delete a case and all its volumes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/cases/"+args[0]); err != nil {
				return err
			}
			fmt.Println("Case deleted")
			return nil
		},
	}
}
