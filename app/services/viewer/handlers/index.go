package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/ardanlabs/blockcraft/foundation/web"
)

//go:embed assets/index.html
var indexHTML string

type indexGroup struct {
	page []byte
}

// newIndex renders the index page once since its content never changes
// while the viewer is running.
func newIndex(build string, nodeHost string) (indexGroup, error) {
	tmpl, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return indexGroup{}, err
	}

	data := struct {
		Build    string
		NodeHost string
	}{
		Build:    build,
		NodeHost: nodeHost,
	}

	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return indexGroup{}, err
	}

	return indexGroup{page: b.Bytes()}, nil
}

func (ig indexGroup) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(ig.page)
	return err
}
