package handlers

import (
	"net/http"
	"os"
	"path/filepath"
)

// File serves one file from dir, or a JSON 404 when it is missing.
func File(dir, name, contentType string) http.HandlerFunc {
	path := filepath.Join(dir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(path)
		if err != nil {
			writeError(w, http.StatusNotFound, name+" not found", "")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			writeError(w, http.StatusNotFound, name+" not found", "")
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		// ServeFile would redirect */index.html to the directory.
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

// Dir serves a directory tree below prefix.
func Dir(prefix, dir string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy","service":"cougar"}`))
}
