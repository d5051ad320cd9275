package health

import (
	"encoding/json"
	"net/http"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	// ActiveWizards is the number of onboarding wizards held in memory.
	ActiveWizards int `json:"activeWizards"`
}

// Counter reports how many wizards are active.
type Counter interface {
	Len() int
}

// NewHandler returns a plain HTTP handler for the health check endpoint.
func NewHandler(version string, wizards Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := Response{Status: "healthy", Version: version}
		if wizards != nil {
			resp.ActiveWizards = wizards.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
