// Package remotetest provides an in-memory order-management API for tests.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is a small API Platform style backend holding displays, queues,
// relation rows and products in memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	displays map[int64]map[string]any
	queues   map[int64]map[string]any
	links    map[int64]map[string]any
	products map[int64]map[string]any
	statuses []map[string]any
	requests []string
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{
		nextID:   1000,
		displays: map[int64]map[string]any{},
		queues:   map[int64]map[string]any{},
		links:    map[int64]map[string]any{},
		products: map[int64]map[string]any{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /displays", s.listDisplays)
	mux.HandleFunc("GET /displays/{id}", s.getDisplay)
	mux.HandleFunc("POST /displays", s.saveDisplay)
	mux.HandleFunc("PUT /displays/{id}", s.saveDisplay)
	mux.HandleFunc("DELETE /displays/{id}", s.deleteDisplay)
	mux.HandleFunc("GET /display_queues", s.listLinks)
	mux.HandleFunc("POST /display_queues", s.createLink)
	mux.HandleFunc("DELETE /display_queues/{id}", s.deleteLink)
	mux.HandleFunc("GET /queues", s.listQueues)
	mux.HandleFunc("POST /queues", s.createQueue)
	mux.HandleFunc("GET /statuses", s.listStatuses)
	mux.HandleFunc("GET /products", s.listProducts)
	mux.HandleFunc("PUT /products/{id}", s.setProductQueue)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

func path(resource string, id int64) string {
	return "/" + resource + "/" + strconv.FormatInt(id, 10)
}

// trailingID reads the id from "7" or "/displays/7".
func trailingID(v any) int64 {
	s, _ := v.(string)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// AddDisplay registers a display owned by /people/{company}.
func (s *Server) AddDisplay(id int64, name, displayType string, company int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays[id] = map[string]any{
		"@id": path("displays", id), "id": id, "display": name,
		"displayType": displayType, "company": path("people", company),
	}
}

// AddQueue registers a queue owned by /people/{company}.
func (s *Server) AddQueue(id int64, name string, company int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[id] = map[string]any{
		"@id": path("queues", id), "id": id, "queue": name, "company": path("people", company),
	}
}

// AddLink registers a relation row.
func (s *Server) AddLink(id, displayID, queueID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[id] = s.linkRow(id, displayID, queueID)
}

// AddProduct registers a product; queueID 0 leaves it unrouted.
func (s *Server) AddProduct(id int64, name string, company, queueID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var queue any
	if queueID > 0 {
		queue = path("queues", queueID)
	}
	s.products[id] = map[string]any{
		"@id": path("products", id), "id": id, "product": name,
		"company": path("people", company), "queue": queue,
	}
}

// AddStatus registers a status in the display context.
func (s *Server) AddStatus(id int64, name, realStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, map[string]any{
		"@id": path("statuses", id), "id": id, "status": name,
		"realStatus": realStatus, "context": "display",
	})
}

// LinkedQueues returns the queue ids linked to a display, ascending.
func (s *Server) LinkedQueues(displayID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, row := range s.links {
		if trailingID(row["display"]) == displayID {
			ids = append(ids, trailingID(row["queue"].(map[string]any)["@id"]))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ProductQueue returns the queue reference a product is routed to, or nil.
func (s *Server) ProductQueue(productID int64) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		return p["queue"]
	}
	return nil
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) linkRow(id, displayID, queueID int64) map[string]any {
	queue := s.queues[queueID]
	if queue == nil {
		queue = map[string]any{"@id": path("queues", queueID), "id": queueID}
	}
	return map[string]any{
		"@id": path("display_queues", id), "id": id,
		"display": path("displays", displayID), "queue": queue,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/ld+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func collection(items []map[string]any) map[string]any {
	sort.Slice(items, func(i, j int) bool {
		return trailingID(items[i]["@id"]) < trailingID(items[j]["@id"])
	})
	if items == nil {
		items = []map[string]any{}
	}
	return map[string]any{"member": items, "totalItems": len(items)}
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"hydra:description": "Not Found"})
}

func (s *Server) listDisplays(w http.ResponseWriter, r *http.Request) {
	company := trailingID(r.URL.Query().Get("company"))
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, d := range s.displays {
		if company == 0 || trailingID(d["company"]) == company {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, collection(out))
}

func (s *Server) getDisplay(w http.ResponseWriter, r *http.Request) {
	id := trailingID(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.displays[id]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) saveDisplay(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status := http.StatusOK
	id := trailingID(r.PathValue("id"))
	if id == 0 {
		s.nextID++
		id = s.nextID
		status = http.StatusCreated
	} else if _, ok := s.displays[id]; !ok {
		notFound(w)
		return
	}
	body["@id"] = path("displays", id)
	body["id"] = id
	s.displays[id] = body
	writeJSON(w, status, body)
}

func (s *Server) deleteDisplay(w http.ResponseWriter, r *http.Request) {
	id := trailingID(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.displays[id]; !ok {
		notFound(w)
		return
	}
	delete(s.displays, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	display := trailingID(q.Get("display"))
	if display == 0 {
		display = trailingID(q.Get("display.id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, row := range s.links {
		if display == 0 || trailingID(row["display"]) == display {
			out = append(out, row)
		}
	}
	writeJSON(w, http.StatusOK, collection(out))
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Display string `json:"display"`
		Queue   string `json:"queue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	displayID, queueID := trailingID(body.Display), trailingID(body.Queue)
	if _, ok := s.queues[queueID]; !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"hydra:description": "queue: This value is not valid."})
		return
	}
	s.nextID++
	row := s.linkRow(s.nextID, displayID, queueID)
	s.links[s.nextID] = row
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) deleteLink(w http.ResponseWriter, r *http.Request) {
	id := trailingID(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		notFound(w)
		return
	}
	delete(s.links, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	company := trailingID(r.URL.Query().Get("company"))
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, q := range s.queues {
		if company == 0 || trailingID(q["company"]) == company {
			out = append(out, q)
		}
	}
	writeJSON(w, http.StatusOK, collection(out))
}

func (s *Server) createQueue(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	body["@id"] = path("queues", s.nextID)
	body["id"] = s.nextID
	s.queues[s.nextID] = body
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) listStatuses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, collection(append([]map[string]any(nil), s.statuses...)))
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	company := trailingID(r.URL.Query().Get("company"))
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, p := range s.products {
		if company == 0 || trailingID(p["company"]) == company {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, collection(out))
}

func (s *Server) setProductQueue(w http.ResponseWriter, r *http.Request) {
	id := trailingID(r.PathValue("id"))
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		notFound(w)
		return
	}
	p["queue"] = body["queue"]
	writeJSON(w, http.StatusOK, p)
}
