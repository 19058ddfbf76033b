package cacheproxy

import (
	"net/http"
	"path"
	"strings"
)

// Route selects the caching strategy of a request.
type Route string

const (
	RouteAdmin      Route = "admin"
	RouteAPI        Route = "api"
	RouteRealtime   Route = "realtime"
	RouteStatic     Route = "static"
	RouteNavigation Route = "navigation"
	RouteDefault    Route = "default"
)

var staticDestinations = map[string]struct{}{
	"script": {},
	"style":  {},
	"image":  {},
	"font":   {},
}

var staticExtensions = map[string]struct{}{
	".js": {}, ".mjs": {}, ".css": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {},
}

// Router classifies requests. The first matching rule wins, in the order of the Route constants.
type Router struct {
	AdminPrefix   string
	APIPrefix     string
	RealtimeHosts []string
}

func (r Router) Classify(req *http.Request) Route {
	p := req.URL.Path
	if r.AdminPrefix != "" && strings.HasPrefix(p, r.AdminPrefix) {
		return RouteAdmin
	}
	if r.APIPrefix != "" && strings.HasPrefix(p, r.APIPrefix) {
		return RouteAPI
	}

	host := req.URL.Hostname()
	if host == "" {
		host = req.Host
	}
	host = strings.ToLower(host)
	for _, marker := range r.RealtimeHosts {
		if marker != "" && strings.Contains(host, strings.ToLower(marker)) {
			return RouteRealtime
		}
	}

	if isStatic(req) {
		return RouteStatic
	}
	if acceptsHTML(req) {
		return RouteNavigation
	}
	return RouteDefault
}

func isStatic(req *http.Request) bool {
	if dest := req.Header.Get("Sec-Fetch-Dest"); dest != "" {
		_, ok := staticDestinations[strings.ToLower(dest)]
		return ok
	}
	_, ok := staticExtensions[strings.ToLower(path.Ext(req.URL.Path))]
	return ok
}

func acceptsHTML(req *http.Request) bool {
	return req.Header.Get("Sec-Fetch-Mode") == "navigate" ||
		strings.Contains(req.Header.Get("Accept"), "text/html")
}
