package handlers

import "net/http"

// Backends names the store and queue implementations the process was wired
// with at startup, fallbacks included.
type Backends struct {
	Store string `json:"store"`
	Queue string `json:"queue"`
}

type healthResponse struct {
	Status   string   `json:"status"`
	Backends Backends `json:"backends"`
}

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Backends: api.backends})
}
