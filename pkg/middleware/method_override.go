package middleware

import (
	"net/http"
	"strings"
)

var overridable = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms reach PUT/PATCH/DELETE routes. A POST carrying a
// `_method` form field (or an X-HTTP-Method-Override header) is rewritten before the
// router sees it, so it has to wrap the gin engine rather than run as gin middleware.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			m := r.Header.Get("X-HTTP-Method-Override")
			if m == "" {
				// FormValue parses urlencoded and multipart bodies; gin reuses the parsed form.
				m = r.FormValue("_method")
			}
			m = strings.ToUpper(strings.TrimSpace(m))
			if overridable[m] {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}
