package domain

import "github.com/goccy/go-json"

// SearchRequest is the query string of GET /search. q must be present but
// may be empty.
type SearchRequest struct {
	Query string `form:"q"`
	Index string `form:"index"`
	Size  int    `form:"size,default=10" binding:"min=1,max=100"`
	From  int    `form:"from,default=0" binding:"min=0"`
}

// SearchResponse is one page of hits.
type SearchResponse struct {
	Total int    `json:"total"`
	From  int    `json:"from"`
	Size  int    `json:"size"`
	Query string `json:"query"`
	Hits  []Hit  `json:"hits"`
}

// Hit is returned as the index store produced it.
type Hit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// Health describes the index store as seen by the service.
type Health struct {
	Status        string `json:"status"`
	Env           string `json:"env"`
	Version       string `json:"version"`
	ClusterStatus string `json:"cluster_status"`
	ClusterName   string `json:"cluster_name"`
}
