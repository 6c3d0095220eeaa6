package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// iconKinds are the icon directories under the assets root.
var iconKinds = map[string]struct{}{
	"aspect":     {},
	"principle":  {},
	"exaltation": {},
	"assistant":  {},
	"generic":    {},
}

// AssetHandler serves entity icons from <root>/<kind>/<id>.png.
type AssetHandler struct {
	root string
}

// NewAssetHandler creates a handler rooted at the assets directory. An
// empty root serves nothing.
func NewAssetHandler(root string) *AssetHandler {
	return &AssetHandler{root: root}
}

// safeName validates that the file is a plain .png name (no path
// separators, no traversal) and returns its absolute path under the kind
// directory.
func (h *AssetHandler) safeName(kind, name string) (string, error) {
	if _, ok := iconKinds[kind]; !ok {
		return "", fmt.Errorf("unknown icon kind: %s", kind)
	}
	if name == "" || !strings.HasSuffix(name, ".png") {
		return "", fmt.Errorf("invalid icon name: %s", name)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid icon name: %s", name)
	}
	dir := filepath.Join(h.root, kind)
	abs := filepath.Join(dir, cleaned)
	if !strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes assets directory")
	}
	return abs, nil
}

// ServeIcon handles GET /data/{kind}/{file}.
func (h *AssetHandler) ServeIcon(w http.ResponseWriter, r *http.Request) {
	if h.root == "" {
		http.NotFound(w, r)
		return
	}
	abs, err := h.safeName(chi.URLParam(r, "kind"), chi.URLParam(r, "file"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, abs)
}
