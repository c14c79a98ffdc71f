package apihttp

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediagate/internal/services/media/tools"
)

// handleFiles serves cache artifacts by bare file name. Artifacts live flat
// in the media and subtitle cache dirs; any path shape beyond a single name
// is rejected before touching the filesystem.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/files/")
	if !safeArtifactName(name) {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid file name")
		return
	}

	for _, dir := range []string{s.mediaDir, s.subtitleDir} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		stat, err := os.Stat(path)
		if err != nil || stat.IsDir() {
			continue
		}
		w.Header().Set("Content-Type", artifactContentType(name))
		http.ServeFile(w, r, path)
		return
	}
	writeError(w, http.StatusNotFound, "not_found", "file not found")
}

type healthResponse struct {
	Status string         `json:"status"`
	Tools  []tools.Status `json:"tools,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{Status: "ok"}
	if s.toolStatus != nil {
		resp.Tools = s.toolStatus(r.Context())
		for _, tool := range resp.Tools {
			if !tool.Optional && !tool.Available {
				resp.Status = "degraded"
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
