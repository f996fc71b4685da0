package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// Response is what the fake prediction service answers for one attempt.
type Response struct {
	Status int
	Body   string
	Delay  time.Duration
}

// HandlerFunc decides the answer for a request. attempt starts at 1 and
// counts requests per launch_datetime.
type HandlerFunc func(q url.Values, attempt int) Response

// Server is a fake prediction service backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handler  HandlerFunc
	attempts map[string]int
	requests []*http.Request
}

// NewServer starts a fake service and closes it when the test ends.
func NewServer(t *testing.T, handler HandlerFunc) *Server {
	t.Helper()

	s := &Server{handler: handler, attempts: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	launch := q.Get("launch_datetime")

	s.mu.Lock()
	s.attempts[launch]++
	attempt := s.attempts[launch]
	s.requests = append(s.requests, r.Clone(r.Context()))
	s.mu.Unlock()

	resp := s.handler(q, attempt)
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	fmt.Fprint(w, resp.Body)
}

// Attempts returns how many requests arrived for a launch_datetime value.
func (s *Server) Attempts(launch string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[launch]
}

// Requests returns every request received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// OK answers every request with a small trajectory around the requested
// launch site.
func OK(q url.Values, attempt int) Response {
	return Response{Body: TrajectoryJSON(q)}
}

// TrajectoryJSON builds a minimal two stage response for the request.
func TrajectoryJSON(q url.Values) string {
	launch, err := time.Parse(time.RFC3339, q.Get("launch_datetime"))
	if err != nil {
		launch = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	}
	lat := parseFloat(q.Get("launch_latitude"))
	lng := parseFloat(q.Get("launch_longitude"))

	point := func(minutes int, dLat, dLng, alt float64) map[string]any {
		return map[string]any{
			"datetime":  launch.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339),
			"latitude":  lat + dLat,
			"longitude": lng + dLng,
			"altitude":  alt,
		}
	}

	body := map[string]any{
		"request": map[string]any{"profile": q.Get("profile"), "launch_datetime": q.Get("launch_datetime")},
		"prediction": []map[string]any{
			{"stage": "ascent", "trajectory": []any{
				point(0, 0, 0, 0),
				point(60, 0.1, 0.2, 15000),
				point(120, 0.2, 0.4, 30000),
			}},
			{"stage": "descent", "trajectory": []any{
				point(120, 0.2, 0.4, 30000),
				point(150, 0.25, 0.5, 0),
			}},
		},
		"metadata": map[string]any{
			"start_time":    launch.Format(time.RFC3339),
			"complete_time": launch.Format(time.RFC3339),
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

// ErrorJSON builds the service's error envelope.
func ErrorJSON(kind, description string) string {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"type": kind, "description": description},
	})
	return string(data)
}

func parseFloat(s string) float64 {
	var f float64
	fmt.Sscanf(s, "%g", &f)
	return f
}
