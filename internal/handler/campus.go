package handler

import (
	"net/http"

	"github.com/neristhub/campushub/internal/campus"
)

// CampusHandler serves the campus map lookup.
type CampusHandler struct{}

func NewCampusHandler() *CampusHandler {
	return &CampusHandler{}
}

// SearchBuilding answers GET /api/map/search?q= with the first building
// whose keywords match, or a JSON null when nothing does. No match is
// not an error; the map client renders the empty state itself.
func (h *CampusHandler) SearchBuilding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, campus.Search(r.URL.Query().Get("q")))
}
