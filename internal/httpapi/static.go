package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// page serves <static>/<name>/index.html.
func (a *API) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.static == "" {
			routeNotFound(w, r)
			return
		}
		file := filepath.Join(a.static, name, "index.html")
		if _, err := os.Stat(file); err != nil {
			routeNotFound(w, r)
			return
		}
		http.ServeFile(w, r, file)
	}
}

// exists reports whether name is a file, or a directory holding an
// index.html. Directory listings are never served.
func exists(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	if !fi.IsDir() {
		return true
	}
	index, err := root.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	index.Close()
	return true
}

// staticFiles serves the client directory. Misses get the JSON 404 rather
// than the file server's plain-text one.
func (a *API) staticFiles() http.Handler {
	if a.static == "" {
		return http.HandlerFunc(routeNotFound)
	}
	root := http.Dir(a.static)
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			routeNotFound(w, r)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		if !exists(root, name) {
			routeNotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
