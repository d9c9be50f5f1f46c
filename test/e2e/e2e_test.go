package e2e

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

func TestInitialSyncEndToEnd(t *testing.T) {
	h := setup(t)
	tenant := "TENANT_E2E"
	h.configure(tenant, models.DirectionBidirectional, "LOC_MAIN")

	// Local side: one employee and one costed dish.
	h.seedEmployee(tenant, "Priya Nair", "manager")
	dish := h.seedLocalMenu(tenant, "Cheeseburger", 16.50)

	// Remote side: one catalog item and a completed order against it.
	remoteID := h.POS.addCatalogItem("Flat White", 450, nil)
	closed := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	h.POS.addOrder(closed, posclient.OrderLineItem{CatalogObjectID: remoteID, Quantity: 3})

	due, err := h.Service.ShouldPerformInitialSync(tenant)
	if err != nil {
		t.Fatalf("ShouldPerformInitialSync: %v", err)
	}
	if !due {
		t.Fatal("expected initial sync to be due for fresh tenant")
	}

	res, err := h.Service.PerformInitialSync(tenant)
	if err != nil {
		t.Fatalf("PerformInitialSync: %v", err)
	}
	if err := res.Failed(); err != nil {
		t.Fatalf("initial sync step failed: %v", err)
	}
	if len(res.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(res.Steps))
	}

	// Configuration is marked completed on disk.
	rows := h.queryDB("SELECT initial_sync_status, initial_sync_error FROM configurations WHERE tenant_id = ?", tenant)
	if len(rows) != 1 || rows[0] != "completed|" {
		t.Errorf("unexpected configuration state: %v", rows)
	}

	// Local employee and dish were pushed to the POS.
	if got := len(h.POS.teamMembers); got != 1 {
		t.Errorf("expected 1 team member on POS, got %d", got)
	}
	if got := len(h.POS.catalog); got != 2 {
		t.Errorf("expected 2 catalog objects on POS (seeded + pushed), got %d", got)
	}

	// The remote item became a local dish with a bidirectional mapping, and
	// its order rolled up into a sales aggregate.
	if n := h.countRows("SELECT COUNT(*) FROM mappings WHERE tenant_id = ?", tenant); n < 3 {
		t.Errorf("expected at least 3 mappings (employee, both dishes), got %d", n)
	}
	date := time.Now().Local().Add(-2 * time.Hour).Format("2006-01-02")
	sales := h.queryDB(`
		SELECT s.number_sold, s.popularity_percentage FROM sales_data s
		JOIN mappings m ON m.local_id = s.dish_id AND m.tenant_id = s.tenant_id
		WHERE s.tenant_id = ? AND s.date = ? AND m.remote_id = ?`, tenant, date, remoteID)
	if len(sales) != 1 || sales[0] != "3|100" {
		t.Errorf("unexpected sales aggregate: %v", sales)
	}

	// Costs were computed for the local dish.
	costs := h.queryDB("SELECT total_cost, gross_profit FROM dishes WHERE tenant_id = ? AND id = ?", tenant, dish.ID)
	if len(costs) != 1 || costs[0] != "4|11" {
		t.Errorf("unexpected dish costs: %v", costs)
	}

	// The run left an initial_sync success row in the audit log.
	if n := h.countRows(
		"SELECT COUNT(*) FROM sync_log WHERE tenant_id = ? AND operation_type = 'initial_sync' AND status = 'success'",
		tenant); n != 1 {
		t.Errorf("expected 1 initial_sync success row, got %d", n)
	}
}

func TestCatalogRoundTripConvergence(t *testing.T) {
	h := setup(t)
	tenant := "TENANT_RT"
	h.configure(tenant, models.DirectionBidirectional, "LOC_MAIN")

	dish := h.seedLocalMenu(tenant, "Lamb Souvlaki", 22.00)
	remoteID := h.POS.addCatalogItem("Baklava", 750, map[string]string{"allergy_info": "nuts"})

	result, err := h.Service.SyncCatalog(tenant)
	if err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("catalog sync reported %d errors", result.Errors)
	}

	// The local dish landed on the POS with its price in cents.
	mapped := h.queryDB(
		"SELECT remote_id FROM mappings WHERE tenant_id = ? AND entity_type = 'dish' AND local_id = ?",
		tenant, dish.ID)
	if len(mapped) != 1 {
		t.Fatalf("expected a mapping for pushed dish, got %v", mapped)
	}
	pushed := h.POS.catalogItem(mapped[0])
	if pushed == nil || pushed.ItemData == nil {
		t.Fatal("pushed dish missing from POS catalog")
	}
	if got := pushed.ItemData.Variations[0].PriceMoney.Amount; got != 2200 {
		t.Errorf("pushed price = %d cents, want 2200", got)
	}

	// The remote item landed locally and in the menu mirror.
	local := h.queryDB(`
		SELECT d.name, d.selling_price FROM dishes d
		JOIN mappings m ON m.local_id = d.id AND m.tenant_id = d.tenant_id
		WHERE m.tenant_id = ? AND m.remote_id = ?`, tenant, remoteID)
	if len(local) != 1 || local[0] != "Baklava|7.5" {
		t.Errorf("unexpected pulled dish: %v", local)
	}
	mirror := h.queryDB("SELECT name, price FROM pos_menu_items WHERE tenant_id = ? AND remote_id = ?", tenant, remoteID)
	if len(mirror) != 1 || mirror[0] != "Baklava|7.5" {
		t.Errorf("unexpected menu mirror row: %v", mirror)
	}

	// A second pass converges with nothing to create.
	again, err := h.Service.SyncCatalog(tenant)
	if err != nil {
		t.Fatalf("second SyncCatalog: %v", err)
	}
	if again.Created != 0 || again.Conflicts != 0 {
		t.Errorf("second pass created %d, conflicts %d; want 0/0", again.Created, again.Conflicts)
	}
}

func TestAuditLogAppendOnly(t *testing.T) {
	h := setup(t)
	tenant := "TENANT_LOG"

	h.seedEmployee(tenant, "Tom Okafor", "chef")
	if _, err := h.Service.SyncStaff(tenant); err != nil {
		t.Fatalf("SyncStaff: %v", err)
	}

	before := h.queryDB(
		"SELECT id, operation_type, status, entity_id FROM sync_log WHERE tenant_id = ? ORDER BY id", tenant)
	if len(before) == 0 {
		t.Fatal("expected audit rows from first pass")
	}

	if _, err := h.Service.SyncStaff(tenant); err != nil {
		t.Fatalf("second SyncStaff: %v", err)
	}

	after := h.queryDB(
		"SELECT id, operation_type, status, entity_id FROM sync_log WHERE tenant_id = ? ORDER BY id", tenant)
	if len(after) <= len(before) {
		t.Fatalf("expected new audit rows, before %d after %d", len(before), len(after))
	}
	for i, row := range before {
		if after[i] != row {
			t.Errorf("audit row %d changed: %q -> %q", i, row, after[i])
		}
	}
	// IDs keep ascending.
	var prev int
	for _, row := range after {
		var id int
		if _, err := fmt.Sscanf(row, "%d|", &id); err != nil {
			t.Fatalf("parse id from %q: %v", row, err)
		}
		if id <= prev {
			t.Fatalf("non-monotonic audit id %d after %d", id, prev)
		}
		prev = id
	}
}

func TestTenantIsolation(t *testing.T) {
	h := setup(t)

	h.seedLocalMenu("TENANT_A", "Pad Thai", 18.00)
	h.seedLocalMenu("TENANT_B", "Laksa", 19.50)

	if _, err := h.Service.SyncCatalog("TENANT_A"); err != nil {
		t.Fatalf("SyncCatalog A: %v", err)
	}

	if n := h.countRows("SELECT COUNT(*) FROM mappings WHERE tenant_id = 'TENANT_A'"); n != 1 {
		t.Errorf("expected 1 mapping for tenant A, got %d", n)
	}
	if n := h.countRows("SELECT COUNT(*) FROM mappings WHERE tenant_id = 'TENANT_B'"); n != 0 {
		t.Errorf("expected no mappings for tenant B, got %d", n)
	}
	if n := h.countRows("SELECT COUNT(*) FROM sync_log WHERE tenant_id = 'TENANT_B'"); n != 0 {
		t.Errorf("expected no audit rows for tenant B, got %d", n)
	}

	// B's dish is untouched; only A's was pushed.
	if got := len(h.POS.catalog); got != 1 {
		t.Errorf("expected 1 object on POS, got %d", got)
	}
	for _, row := range h.queryDB("SELECT name FROM dishes WHERE tenant_id = 'TENANT_B'") {
		if strings.Contains(row, "Pad Thai") {
			t.Errorf("tenant A dish leaked into tenant B: %q", row)
		}
	}
}
