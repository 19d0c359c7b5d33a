package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// handler serves the files of dir, allowing cross-origin requests so that
// browser clients can fetch converted data.
func handler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		switch strings.ToLower(filepath.Ext(r.URL.Path)) {
		case ".fgb", ".shp", ".shx", ".dbf":
			w.Header().Set("Content-Type", "application/octet-stream")
		case ".geojson":
			w.Header().Set("Content-Type", "application/geo+json")
		case ".gml":
			w.Header().Set("Content-Type", "application/gml+xml")
		}
		files.ServeHTTP(w, r)
	})
}

// serveDir serves the directory holding output until ctx is done.
func serveDir(ctx context.Context, addr, output string, logger *slog.Logger) error {
	dir := filepath.Dir(output)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler(dir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving", "addr", addr, "dir", dir, "file", "/"+filepath.Base(output))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
