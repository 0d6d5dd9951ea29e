/*
Copyright © 2026 Partydeck <dev@partydeck.app>
*/

package main

import (
	"embed"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

//go:embed favicons/*
var favicons embed.FS

func getFavicon() string {
	return `<link rel="icon" type="image/svg+xml" href="/favicons/favicon.svg">
	<link rel="manifest" href="/favicons/site.webmanifest" crossorigin="use-credentials">
	<meta name="theme-color" content="#1b1b2f">`
}

func serveFavicons(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		data, err := favicons.ReadFile(fname)
		if err != nil {
			return
		}

		securityHeaders(cfg, w)

		if strings.HasSuffix(fname, ".svg") {
			w.Header().Set("Content-Type", "image/svg+xml")
		}

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}
