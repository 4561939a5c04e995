package supervisor

import (
	"net/http"

	"github.com/goccy/go-json"
)

type healthResponse struct {
	Status   string   `json:"status"`
	State    string   `json:"state"`
	Stats    Stats    `json:"stats"`
	Withheld []string `json:"withheld,omitempty"`
}

// HealthHandler reports the run state. Anything but Running is 503, and so
// is a running consumer with a withheld partition: nothing past the failed
// offset on that partition is committed until the process restarts.
func (s *Supervisor) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := s.State()
		resp := healthResponse{
			Status: "healthy",
			State:  state.String(),
			Stats:  s.Stats(),
		}
		for _, p := range s.Pinned() {
			resp.Withheld = append(resp.Withheld, p.String())
		}

		code := http.StatusOK
		switch {
		case state != StateRunning:
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		case len(resp.Withheld) > 0:
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}
