package web

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/dooh-labs/attentiond/internal/tracker"
)

// EntityResponse is one tracked person in an API summary.
type EntityResponse struct {
	TrackID    int     `json:"track_id"`
	IdentityID int     `json:"identity_id,omitempty"`
	AttentionS float64 `json:"attention_s"`
	TotalS     float64 `json:"total_s"`
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
}

// SummaryResponse is the payload of /summary and /summary/all.
type SummaryResponse struct {
	ElapsedS    float64          `json:"elapsed_s"`
	ActiveCount int              `json:"active_count"`
	Entities    []EntityResponse `json:"entities"`
}

// TimelinePointResponse is one sample of /timeline.
type TimelinePointResponse struct {
	ElapsedS    float64 `json:"elapsed_s"`
	ActiveCount int     `json:"active_count"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func entityResponses(times map[int]tracker.Times) []EntityResponse {
	entities := make([]EntityResponse, 0, len(times))
	for id, t := range times {
		entities = append(entities, EntityResponse{
			TrackID:    id,
			IdentityID: t.IdentityID,
			AttentionS: t.AttentionTime.Seconds(),
			TotalS:     t.TotalTime.Seconds(),
			StartS:     t.StartTime.Seconds(),
			EndS:       t.EndTime.Seconds(),
		})
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].TrackID < entities[j].TrackID })
	return entities
}

// handleSummary returns the entities currently in frame.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	respondJSON(w, http.StatusOK, SummaryResponse{
		ElapsedS:    snap.Elapsed.Seconds(),
		ActiveCount: snap.ActiveCount,
		Entities:    entityResponses(snap.Active),
	})
}

// handleSummaryAll returns every entity ever tracked this session.
func (s *Server) handleSummaryAll(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	respondJSON(w, http.StatusOK, SummaryResponse{
		ElapsedS:    snap.Elapsed.Seconds(),
		ActiveCount: snap.ActiveCount,
		Entities:    entityResponses(snap.AllTime),
	})
}

// handleTimeline returns the presence series sampled once per frame.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	points := make([]TimelinePointResponse, 0, len(snap.Timeline))
	for _, p := range snap.Timeline {
		points = append(points, TimelinePointResponse{
			ElapsedS:    p.Elapsed.Seconds(),
			ActiveCount: p.ActiveCount,
		})
	}
	respondJSON(w, http.StatusOK, points)
}
