package server

import (
	"path/filepath"
	"strings"

	"http-fixture/application/http"
	"http-fixture/application/http/status"

	"github.com/spf13/afero"
)

type staticRoute struct {
	prefix string
	dir    string
}

func statusText(s status.Status) *http.Response {
	return http.NewResponse(s.Code).SetBody([]byte(s.ReasonPhrase))
}

// serveStatic resolves path against the first static route whose prefix it starts with.
// Any ".." in the remainder is refused with 403 before the filesystem is touched.
// It responds 404 when no route matches.
func (t *Table) serveStatic(path string) *http.Response {
	for _, route := range t.static {
		if !strings.HasPrefix(path, route.prefix) {
			continue
		}

		relative := path[len(route.prefix):]
		if strings.Contains(relative, "..") {
			return statusText(status.Forbidden)
		}

		return serveFile(t.fs, filepath.Join(route.dir, filepath.FromSlash(relative)))
	}

	return statusText(status.NotFound)
}

func serveFile(fs afero.Fs, name string) *http.Response {
	info, err := fs.Stat(name)
	if err == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = fs.Stat(name)
	}

	if err != nil || !info.Mode().IsRegular() {
		return statusText(status.NotFound)
	}

	content, err := afero.ReadFile(fs, name)
	if err != nil {
		return statusText(status.InternalServerError)
	}

	return http.NewResponse(status.OK.Code).
		SetHeader("Content-Type", http.ContentTypeByExtension(name)).
		SetBody(content)
}
