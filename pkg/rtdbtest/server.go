// Package rtdbtest serves an in-memory Realtime Database over the REST
// protocol used by firebase.google.com/go/v4/db, for tests.
package rtdbtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
)

// Server is a fake Realtime Database. Every write bumps a global revision
// that doubles as the ETag of every node.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	root     map[string]interface{}
	revision int
	pushSeq  int

	// BeforePut, when set, runs before a conditional PUT is checked, so a
	// test can slip in a competing write.
	BeforePut func(s *Server)
}

// NewServer starts a fake database that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{root: map[string]interface{}{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// Client returns a database client pointed at the fake through the
// emulator host format, which needs no credentials.
func (s *Server) Client(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()
	host := strings.TrimPrefix(s.srv.URL, "http://127.0.0.1")
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   "demo-project",
		DatabaseURL: "localhost" + host + "?ns=demo-project",
	})
	if err != nil {
		t.Fatalf("firebase app: %v", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		t.Fatalf("database client: %v", err)
	}
	return client
}

// Get returns the decoded value at path, or nil.
func (s *Server) Get(path string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup(s.root, segments(path))
}

// Set replaces the value at path.
func (s *Server) Set(path string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(segments(path), normalize(v))
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := segments(strings.TrimSuffix(r.URL.Path, ".json"))

	switch r.Method {
	case http.MethodGet:
		value := lookup(s.root, path)
		if orderBy := r.URL.Query().Get("orderBy"); orderBy != "" {
			value = filter(value, orderBy, r.URL.Query().Get("equalTo"))
		}
		if r.Header.Get("X-Firebase-ETag") == "true" {
			w.Header().Set("ETag", s.etag())
		}
		writeJSON(w, http.StatusOK, value)

	case http.MethodPut:
		v, ok := decode(w, r)
		if !ok {
			return
		}
		if match := r.Header.Get("If-Match"); match != "" {
			if s.BeforePut != nil {
				hook := s.BeforePut
				s.BeforePut = nil
				s.mu.Unlock()
				hook(s)
				s.mu.Lock()
			}
			if match != s.etag() {
				w.Header().Set("ETag", s.etag())
				writeJSON(w, http.StatusPreconditionFailed, lookup(s.root, path))
				return
			}
		}
		s.write(path, v)
		writeJSON(w, http.StatusOK, v)

	case http.MethodPatch:
		v, ok := decode(w, r)
		if !ok {
			return
		}
		updates, isMap := v.(map[string]interface{})
		if !isMap {
			http.Error(w, `{"error":"patch body must be an object"}`, http.StatusBadRequest)
			return
		}
		for key, value := range updates {
			s.write(append(append([]string(nil), path...), segments(key)...), value)
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPost:
		v, ok := decode(w, r)
		if !ok {
			return
		}
		s.pushSeq++
		key := fmt.Sprintf("-N%08d", s.pushSeq)
		s.write(append(append([]string(nil), path...), key), v)
		writeJSON(w, http.StatusOK, map[string]string{"name": key})

	default:
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) etag() string {
	return strconv.Itoa(s.revision)
}

// write sets value at path, creating parents; nil deletes.
func (s *Server) write(path []string, value interface{}) {
	s.revision++
	if len(path) == 0 {
		m, _ := value.(map[string]interface{})
		if m == nil {
			m = map[string]interface{}{}
		}
		s.root = m
		return
	}

	node := s.root
	for _, seg := range path[:len(path)-1] {
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			node[seg] = child
		}
		node = child
	}
	last := path[len(path)-1]
	if value == nil {
		delete(node, last)
		return
	}
	node[last] = value
}

func lookup(root map[string]interface{}, path []string) interface{} {
	var node interface{} = root
	for _, seg := range path {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m[seg]
	}
	if m, ok := node.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	return node
}

// filter keeps the children whose orderBy field equals equalTo. Both query
// parameters arrive JSON-encoded.
func filter(value interface{}, orderBy, equalTo string) interface{} {
	var field string
	if err := json.Unmarshal([]byte(orderBy), &field); err != nil {
		return nil
	}
	var want interface{}
	if err := json.Unmarshal([]byte(equalTo), &want); err != nil {
		return nil
	}

	children, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := map[string]interface{}{}
	for key, child := range children {
		if m, ok := child.(map[string]interface{}); ok && m[field] == want {
			out[key] = child
		}
	}
	return out
}

func segments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request) (interface{}, bool) {
	var v interface{}
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return nil, false
	}
	return v, true
}

// normalize round-trips v through JSON so stored values look like decoded ones
func normalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
