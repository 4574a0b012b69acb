package mw

import (
	"net/http"
	"strings"
)

// AllowOrigins rejects browser requests coming from a page that is neither
// one of origins nor served by this host. The session is process wide, so
// every request acts as the logged-in user.
func AllowOrigins(origins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.ToLower(r.Header.Get("Origin"))
			switch {
			case origin == "":
				// non-browser clients and same-origin navigations send none
				if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
					writeError(w, http.StatusForbidden, "origin not allowed")
					return
				}
			case sameHost(origin, r.Host):
			default:
				if _, ok := allowed[origin]; !ok {
					writeError(w, http.StatusForbidden, "origin not allowed")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sameHost(origin, host string) bool {
	host = strings.ToLower(host)
	return origin == "http://"+host || origin == "https://"+host
}
