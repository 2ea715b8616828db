// Package web serves the embedded chat UI.
//
// The UI is a single static page whose JavaScript talks to the JSON API:
// POST /api/v1/chat/stream for conversation and GET /api/v1/threads for
// history. Assets are embedded at compile time so the binary is
// self-contained.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assetsFS embed.FS

// Handler returns an http.Handler serving the chat UI.
// The page is served at "/" and assets under "/static/".
func Handler() http.Handler {
	sub, err := fs.Sub(assetsFS, "static")
	if err != nil {
		// Cannot happen with a compile-time embed of "static".
		panic("web: missing embedded assets: " + err.Error())
	}

	files := http.FileServer(http.FS(sub))

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", files))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		index, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})

	return mux
}
