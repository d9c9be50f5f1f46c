package sync

import (
	"fmt"
	"sync"
	"testing"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/posclient"
)

// fakePOS is an in-memory stand-in for the POS API.
type fakePOS struct {
	mu          sync.Mutex
	catalog     map[string]*posclient.CatalogObject
	teamMembers map[string]*posclient.TeamMember
	orders      []posclient.Order
	nextID      int

	// errs is a FIFO of errors injected into the next mutating calls.
	errs []error

	// onOrdersSearch, when set, runs during SearchAllOrders. Lets a test
	// break something between the search and the per-line processing.
	onOrdersSearch func()

	upserts int
	creates int
	updates int
}

func newFakePOS() *fakePOS {
	return &fakePOS{
		catalog:     make(map[string]*posclient.CatalogObject),
		teamMembers: make(map[string]*posclient.TeamMember),
	}
}

func (f *fakePOS) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakePOS) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakePOS) popErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakePOS) ListAllCatalog() ([]posclient.CatalogObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	var all []posclient.CatalogObject
	for _, obj := range f.catalog {
		all = append(all, *obj)
	}
	return all, nil
}

func (f *fakePOS) RetrieveCatalogObject(objectID string) (*posclient.CatalogObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	obj, ok := f.catalog[objectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", posclient.ErrNotFound, objectID)
	}
	copied := *obj
	return &copied, nil
}

func (f *fakePOS) UpsertCatalogObject(obj *posclient.CatalogObject) (*posclient.CatalogObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	f.upserts++

	saved := *obj
	if saved.ID == "" {
		f.nextID++
		saved.ID = fmt.Sprintf("OBJ%d", f.nextID)
	} else if existing, ok := f.catalog[saved.ID]; ok && existing.Version != saved.Version {
		return nil, fmt.Errorf("%w: object %s", posclient.ErrVersionStale, saved.ID)
	}
	saved.Version++
	f.catalog[saved.ID] = &saved
	copied := saved
	return &copied, nil
}

func (f *fakePOS) SearchAllTeamMembers(statuses []string) ([]posclient.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	var all []posclient.TeamMember
	for _, tm := range f.teamMembers {
		all = append(all, *tm)
	}
	return all, nil
}

func (f *fakePOS) CreateTeamMember(tm *posclient.TeamMember) (*posclient.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	f.creates++
	saved := *tm
	f.nextID++
	saved.ID = fmt.Sprintf("TM%d", f.nextID)
	f.teamMembers[saved.ID] = &saved
	copied := saved
	return &copied, nil
}

func (f *fakePOS) UpdateTeamMember(teamMemberID string, tm *posclient.TeamMember) (*posclient.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	if _, ok := f.teamMembers[teamMemberID]; !ok {
		return nil, fmt.Errorf("%w: %s", posclient.ErrNotFound, teamMemberID)
	}
	f.updates++
	saved := *tm
	saved.ID = teamMemberID
	f.teamMembers[teamMemberID] = &saved
	copied := saved
	return &copied, nil
}

func (f *fakePOS) SearchAllOrders(query *posclient.SearchOrdersQuery) ([]posclient.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popErr(); err != nil {
		return nil, err
	}
	if f.onOrdersSearch != nil {
		f.onOrdersSearch()
	}
	var matched []posclient.Order
	for _, o := range f.orders {
		if query.State != "" && o.State != query.State {
			continue
		}
		matched = append(matched, o)
	}
	return matched, nil
}

// newTestService builds a Service over a fresh store and fake POS.
func newTestService(t *testing.T) (*Service, *fakePOS, *db.DB) {
	t.Helper()
	database, err := db.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	pos := newFakePOS()
	return NewService(database, pos, nil), pos, database
}
