package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const indexFile = "index.html"

// StaticHandler serves the built browser client from a directory. Paths that
// do not name a file fall back to index.html so client-side routes resolve.
type StaticHandler struct {
	root string
}

// NewStaticHandler creates a handler rooted at dir.
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{root: filepath.Clean(dir)}
}

// resolve maps a URL path to a file under root. It returns "" when the
// path does not name a regular file.
func (h *StaticHandler) resolve(urlPath string) string {
	cleaned := path.Clean("/" + urlPath)
	abs := filepath.Join(h.root, filepath.FromSlash(cleaned))
	// Double-check the resolved path is under root.
	if abs != h.root && !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return ""
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return ""
	}
	return abs
}

// ServeHTTP handles GET /*.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if abs := h.resolve(r.URL.Path); abs != "" {
		http.ServeFile(w, r, abs)
		return
	}
	index := filepath.Join(h.root, indexFile)
	if _, err := os.Stat(index); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
