// Package fakees provides an in-memory fake of the Elasticsearch REST API
// subset used by the indexer and the search service: document index/delete,
// _search, the root info endpoint and _cluster/health.
//
// It answers with the X-Elastic-Product header so the official client's
// product check passes, and supports failure injection for write paths.
package fakees

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Request is one request seen by the server.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// Server is a fake Elasticsearch node.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	indices   map[string]map[string]json.RawMessage
	requests  []Request
	failNext  int
	failCode  int
	down      bool
	clusterOK string
}

// New starts a fake server. Call Close when done.
func New() *Server {
	s := &Server{
		indices:   make(map[string]map[string]json.RawMessage),
		clusterOK: "green",
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailWrites makes the next n index/delete requests answer with status.
func (s *Server) FailWrites(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failCode = status
}

// SetDown makes every request answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// SetClusterStatus changes the status reported by _cluster/health.
func (s *Server) SetClusterStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterOK = status
}

// Put stores a document directly, bypassing the API.
func (s *Server) Put(index, id string, doc any) {
	data, _ := json.Marshal(doc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexFor(index)[id] = data
}

// Doc returns a stored document decoded into a map.
func (s *Server) Doc(index, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.indices[index][id]
	if !ok {
		return nil, false
	}
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	return doc, true
}

// Count returns the number of documents in index.
func (s *Server) Count(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indices[index])
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// WriteRequests returns the logged document write/delete requests.
func (s *Server) WriteRequests() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.Contains(r.Path, "/_doc/") {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) indexFor(index string) map[string]json.RawMessage {
	docs, ok := s.indices[index]
	if !ok {
		docs = make(map[string]json.RawMessage)
		s.indices[index] = docs
	}
	return docs
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})

	if s.down {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "unavailable"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         "fake-node",
			"cluster_name": "fake-cluster",
			"version":      map[string]any{"number": "8.17.0"},
			"tagline":      "You Know, for Search",
		})

	case r.URL.Path == "/_cluster/health":
		writeJSON(w, http.StatusOK, map[string]any{
			"cluster_name": "fake-cluster",
			"status":       s.clusterOK,
		})

	case len(parts) == 3 && parts[1] == "_doc":
		s.handleDoc(w, r.Method, parts[0], parts[2], body)

	case len(parts) == 2 && parts[1] == "_search":
		s.handleSearch(w, parts[0], body)

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": fmt.Sprintf("no handler for %s %s", r.Method, r.URL.Path)})
	}
}

func (s *Server) handleDoc(w http.ResponseWriter, method, index, id string, body []byte) {
	if (method == http.MethodPut || method == http.MethodPost || method == http.MethodDelete) && s.failNext > 0 {
		s.failNext--
		writeJSON(w, s.failCode, map[string]any{"error": map[string]any{"type": "injected_failure"}, "status": s.failCode})
		return
	}

	switch method {
	case http.MethodPut, http.MethodPost:
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "mapper_parsing_exception"}})
			return
		}
		docs := s.indexFor(index)
		_, existed := docs[id]
		docs[id] = append(json.RawMessage(nil), body...)
		status, result := http.StatusCreated, "created"
		if existed {
			status, result = http.StatusOK, "updated"
		}
		writeJSON(w, status, map[string]any{"_index": index, "_id": id, "result": result})

	case http.MethodDelete:
		docs, ok := s.indices[index]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}, "status": 404})
			return
		}
		if _, ok := docs[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "result": "not_found"})
			return
		}
		delete(docs, id)
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "result": "deleted"})

	case http.MethodGet:
		raw, ok := s.indices[index][id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "found": true, "_source": raw})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

// handleSearch returns every document of the index ordered by id, paged by
// from/size. Query matching is not emulated.
func (s *Server) handleSearch(w http.ResponseWriter, index string, body []byte) {
	docs, ok := s.indices[index]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}, "status": 404})
		return
	}

	var req struct {
		From *int `json:"from"`
		Size *int `json:"size"`
	}
	_ = json.Unmarshal(body, &req)
	from, size := 0, 10
	if req.From != nil {
		from = *req.From
	}
	if req.Size != nil {
		size = *req.Size
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hits := make([]map[string]any, 0, size)
	for i := from; i < len(ids) && len(hits) < size; i++ {
		hits = append(hits, map[string]any{
			"_index":    index,
			"_id":       ids[i],
			"_score":    1.0,
			"_source":   docs[ids[i]],
			"highlight": map[string]any{},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"took":      1,
		"timed_out": false,
		"hits": map[string]any{
			"total":     map[string]any{"value": len(ids), "relation": "eq"},
			"max_score": 1.0,
			"hits":      hits,
		},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	var rd io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("bad gzip body: %w", err)
		}
		defer gz.Close()
		rd = gz
	}
	return io.ReadAll(rd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
