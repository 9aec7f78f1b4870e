package handlers

import "net/http"

// Home sends visitors to the dashboard; unknown paths are not found.
func Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	redirectTo(w, r, routes.Home)
}
