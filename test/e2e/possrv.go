// Package e2e exercises the full sync stack against an in-process POS
// server, then verifies the resulting SQLite state with raw SQL.
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/marcus/possync/internal/posclient"
)

// posServer is an in-memory POS backend speaking the subset of the API the
// client uses. All state is guarded by mu; handlers are safe for concurrent
// requests.
type posServer struct {
	mu          sync.Mutex
	token       string
	locations   []posclient.Location
	catalog     map[string]*posclient.CatalogObject
	teamMembers map[string]*posclient.TeamMember
	orders      []posclient.Order
	nextID      int
	pageSize    int
}

func newPOSServer(token string) *posServer {
	return &posServer{
		token: token,
		locations: []posclient.Location{
			{ID: "LOC_MAIN", Name: "Main Street", Status: "ACTIVE", Currency: "AUD"},
		},
		catalog:     make(map[string]*posclient.CatalogObject),
		teamMembers: make(map[string]*posclient.TeamMember),
		pageSize:    100,
	}
}

func (s *posServer) genID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s_%d", prefix, s.nextID)
}

// addCatalogItem seeds a remote ITEM with one priced variation.
func (s *posServer) addCatalogItem(name string, priceCents int64, attrs map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.genID("OBJ")
	s.catalog[id] = &posclient.CatalogObject{
		ID:                   id,
		Type:                 "ITEM",
		Version:              1,
		PresentAtLocationIDs: []string{"LOC_MAIN"},
		ItemData: &posclient.ItemData{
			Name: name,
			Variations: []posclient.ItemVariation{
				{ID: id + "_VAR", Version: 1, Name: "Regular", PriceMoney: &posclient.Money{Amount: priceCents, Currency: "AUD"}},
			},
		},
		CustomAttributes: attrs,
	}
	return id
}

// addOrder seeds a completed order for the main location.
func (s *posServer) addOrder(closedAt string, lines ...posclient.OrderLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, posclient.Order{
		ID:         s.genID("ORD"),
		LocationID: "LOC_MAIN",
		State:      posclient.OrderCompleted,
		ClosedAt:   closedAt,
		LineItems:  lines,
	})
}

func (s *posServer) catalogItem(id string) *posclient.CatalogObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.catalog[id]; ok {
		clone := *obj
		return &clone
	}
	return nil
}

func (s *posServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if auth := r.Header.Get("Authorization"); auth != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "message": "bad token"})
		return
	}

	switch {
	case r.URL.Path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case r.URL.Path == "/v2/locations":
		s.handleLocations(w, r)
	case r.URL.Path == "/v2/catalog/list":
		s.handleCatalogList(w, r)
	case strings.HasPrefix(r.URL.Path, "/v2/catalog/object/"):
		s.handleCatalogGet(w, r)
	case r.URL.Path == "/v2/catalog/object":
		s.handleCatalogUpsert(w, r)
	case r.URL.Path == "/v2/team-members/search":
		s.handleTeamSearch(w, r)
	case r.URL.Path == "/v2/team-members":
		s.handleTeamCreate(w, r)
	case strings.HasPrefix(r.URL.Path, "/v2/team-members/"):
		s.handleTeamUpdate(w, r)
	case r.URL.Path == "/v2/orders/search":
		s.handleOrdersSearch(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": r.URL.Path})
	}
}

func (s *posServer) handleLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"locations": s.locations})
}

func (s *posServer) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.catalog))
	for id := range s.catalog {
		ids = append(ids, id)
	}
	// Deterministic paging order.
	sort.Strings(ids)

	start := 0
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + s.pageSize
	if end > len(ids) {
		end = len(ids)
	}

	objects := make([]posclient.CatalogObject, 0, end-start)
	for _, id := range ids[start:end] {
		objects = append(objects, *s.catalog[id])
	}
	next := ""
	if end < len(ids) {
		next = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects, "cursor": next})
}

func (s *posServer) handleCatalogGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimPrefix(r.URL.Path, "/v2/catalog/object/")
	obj, ok := s.catalog[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": obj})
}

func (s *posServer) handleCatalogUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Object *posclient.CatalogObject `json:"object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Object == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj := req.Object
	if obj.ID == "" {
		obj.ID = s.genID("OBJ")
	}
	if existing, ok := s.catalog[obj.ID]; ok && existing.Version != obj.Version {
		writeJSON(w, http.StatusConflict, map[string]string{"code": "VERSION_MISMATCH", "message": obj.ID})
		return
	}
	obj.Version++
	clone := *obj
	s.catalog[obj.ID] = &clone
	writeJSON(w, http.StatusOK, map[string]any{"object": obj})
}

func (s *posServer) handleTeamSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]posclient.TeamMember, 0, len(s.teamMembers))
	for _, tm := range s.teamMembers {
		members = append(members, *tm)
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_members": members})
}

func (s *posServer) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamMember *posclient.TeamMember `json:"team_member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamMember == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tm := req.TeamMember
	tm.ID = s.genID("TM")
	clone := *tm
	s.teamMembers[tm.ID] = &clone
	writeJSON(w, http.StatusOK, map[string]any{"team_member": tm})
}

func (s *posServer) handleTeamUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v2/team-members/")
	var req struct {
		TeamMember *posclient.TeamMember `json:"team_member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamMember == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teamMembers[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": id})
		return
	}
	tm := req.TeamMember
	tm.ID = id
	clone := *tm
	s.teamMembers[id] = &clone
	writeJSON(w, http.StatusOK, map[string]any{"team_member": tm})
}

func (s *posServer) handleOrdersSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query *posclient.SearchOrdersQuery `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]posclient.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if req.Query.State != "" && o.State != req.Query.State {
			continue
		}
		if len(req.Query.LocationIDs) > 0 && !contains(req.Query.LocationIDs, o.LocationID) {
			continue
		}
		if req.Query.ClosedAfter != "" && o.ClosedAt < req.Query.ClosedAfter {
			continue
		}
		if req.Query.ClosedBefore != "" && o.ClosedAt >= req.Query.ClosedBefore {
			continue
		}
		matched = append(matched, o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": matched})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
