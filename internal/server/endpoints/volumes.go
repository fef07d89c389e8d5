package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/internal/raster"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/svcctx"
	"github.com/pvolkov/tome/internal/types"
)

// UploadVolumeEndpoint handles POST /api/cases/{id}/volumes with a
// multipart PDF upload. The file is validated and page-counted before the
// volume record is created; the PDF then lands under ~/.tome/volumes.
type UploadVolumeEndpoint struct{}

var _ api.Endpoint = (*UploadVolumeEndpoint)(nil)

func (e *UploadVolumeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/cases/{id}/volumes", e.handler
}

func (e *UploadVolumeEndpoint) RequiresInit() bool { return true }

func (e *UploadVolumeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	// Parse multipart form with 500MB max memory
	const maxMemory = 500 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
		return
	}

	volumeNumber := 0
	if raw := r.FormValue("volume_number"); raw != "" {
		volumeNumber, err = strconv.Atoi(raw)
		if err != nil || volumeNumber < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid volume_number: %q", raw))
			return
		}
	}

	st := svcctx.StoreFrom(r.Context())
	homeDir := svcctx.HomeFrom(r.Context())
	if homeDir == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}

	if _, err := st.GetCase(r.Context(), caseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Stage the upload in a temp file for validation before anything is
	// recorded.
	tmp, err := os.CreateTemp("", "tome-upload-*.pdf")
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create temp file: %v", err))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save file: %v", err))
		return
	}

	if err := raster.Validate(tmpPath); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid PDF: %v", err))
		return
	}
	pageCount, err := raster.PageCount(tmpPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unreadable PDF: %v", err))
		return
	}

	if volumeNumber == 0 {
		existing, err := st.ListVolumes(r.Context(), caseID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		volumeNumber = len(existing) + 1
	}

	vol, err := st.CreateVolume(r.Context(), types.Volume{
		CaseID:       caseID,
		VolumeNumber: volumeNumber,
		FileName:     header.Filename,
		FileSize:     size,
		PageCount:    pageCount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Move the validated PDF to its permanent location.
	destPath := homeDir.VolumePDFPath(vol.ID)
	if err := moveFile(tmpPath, destPath); err != nil {
		// Roll the record back; a volume without its PDF is useless.
		_ = st.DeleteVolume(r.Context(), vol.ID)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store PDF: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, vol)
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems (temp dir and home may be on different mounts).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func (e *UploadVolumeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var volumeNumber int
	cmd := &cobra.Command{
		Use:   "volumes-upload <case-id> <pdf-path>",
		Short: "Upload a volume PDF to a case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			fields := map[string]string{}
			if volumeNumber > 0 {
				fields["volume_number"] = strconv.Itoa(volumeNumber)
			}
			var resp types.Volume
			path := "/api/cases/" + args[0] + "/volumes"
			if err := client.PostFile(cmd.Context(), path, "file", args[1], fields, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&volumeNumber, "volume-number", 0, "Volume number within the case (default: next)")
	return cmd
}

// ListVolumesResponse is the response for listing volumes of a case.
type ListVolumesResponse struct {
	Volumes []types.Volume `json:"volumes"`
}

// ListVolumesEndpoint handles GET /api/cases/{id}/volumes.
type ListVolumesEndpoint struct{}

func (e *ListVolumesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/cases/{id}/volumes", e.handler
}

func (e *ListVolumesEndpoint) RequiresInit() bool { return true }

func (e *ListVolumesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if _, err := st.GetCase(r.Context(), caseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	volumes, err := st.ListVolumes(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListVolumesResponse{Volumes: volumes})
}

func (e *ListVolumesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes-list <case-id>",
		Short: "List volumes of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListVolumesResponse
			if err := client.Get(cmd.Context(), "/api/cases/"+args[0]+"/volumes", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetVolumeEndpoint handles GET /api/volumes/{id}.
type GetVolumeEndpoint struct{}

func (e *GetVolumeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}", e.handler
}

func (e *GetVolumeEndpoint) RequiresInit() bool { return true }

func (e *GetVolumeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	vol, err := st.GetVolume(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "volume not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vol)
}

func (e *GetVolumeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes-get <id>",
		Short: "Get a volume by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.Volume
			if err := client.Get(cmd.Context(), "/api/volumes/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteVolumeEndpoint handles DELETE /api/volumes/{id}.
type DeleteVolumeEndpoint struct{}

func (e *DeleteVolumeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/volumes/{id}", e.handler
}

func (e *DeleteVolumeEndpoint) RequiresInit() bool { return true }

func (e *DeleteVolumeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if err := st.DeleteVolume(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "volume not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h := svcctx.HomeFrom(r.Context()); h != nil {
		if err := h.RemoveVolumePDF(id); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Warn("failed to remove volume PDF", "volume_id", id, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (e *DeleteVolumeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes-delete <id>",
		Short: "Delete a volume and its extraction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/volumes/"+args[0]); err != nil {
				return err
			}
			fmt.Println("Volume deleted")
			return nil
		},
	}
}
