package e2e

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
	"github.com/marcus/possync/internal/sync"
)

const testToken = "e2e-token"

// Harness wires a real database and sync service to an in-process POS
// server for one test.
type Harness struct {
	t *testing.T

	DB      *db.DB
	Service *sync.Service
	POS     *posServer
	Server  *httptest.Server
}

func setup(t *testing.T) *Harness {
	t.Helper()
	baseDir := t.TempDir()

	database, err := db.Initialize(baseDir)
	if err != nil {
		t.Fatalf("initialize db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	pos := newPOSServer(testToken)
	server := httptest.NewServer(pos)
	t.Cleanup(server.Close)

	client := posclient.New(server.URL, testToken)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return &Harness{
		t:       t,
		DB:      database,
		Service: sync.NewService(database, client, logger),
		POS:     pos,
		Server:  server,
	}
}

// dbPath returns the on-disk SQLite file, for out-of-band inspection.
func (h *Harness) dbPath() string {
	return filepath.Join(h.DB.BaseDir(), ".possync", "possync.db")
}

// queryDB runs raw SQL against the store through an independent read-only
// connection and returns rows as pipe-joined strings. Using a separate
// connection for verification keeps the checks honest about what hit disk.
func (h *Harness) queryDB(query string, args ...any) []string {
	h.t.Helper()

	conn, err := sql.Open("sqlite", "file:"+h.dbPath()+"?mode=ro")
	if err != nil {
		h.t.Fatalf("open verify conn: %v", err)
	}
	defer conn.Close()

	rows, err := conn.Query(query, args...)
	if err != nil {
		h.t.Fatalf("verify query %q: %v", query, err)
	}
	defer rows.Close()

	cols, _ := rows.Columns()
	var lines []string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			h.t.Fatalf("scan: %v", err)
		}
		parts := make([]string, 0, len(vals))
		for _, v := range vals {
			switch vv := v.(type) {
			case nil:
				parts = append(parts, "NULL")
			case []byte:
				parts = append(parts, string(vv))
			default:
				parts = append(parts, fmt.Sprintf("%v", vv))
			}
		}
		lines = append(lines, strings.Join(parts, "|"))
	}
	if err := rows.Err(); err != nil {
		h.t.Fatalf("rows: %v", err)
	}
	return lines
}

// countRows returns the single integer a COUNT(*) query produces.
func (h *Harness) countRows(query string, args ...any) int {
	h.t.Helper()
	lines := h.queryDB(query, args...)
	if len(lines) != 1 {
		h.t.Fatalf("expected one row from %q, got %d", query, len(lines))
	}
	var n int
	if _, err := fmt.Sscanf(lines[0], "%d", &n); err != nil {
		h.t.Fatalf("parse count %q: %v", lines[0], err)
	}
	return n
}

// seedLocalMenu creates a dish with a costed recipe and returns it.
func (h *Harness) seedLocalMenu(tenant, name string, price float64) *models.Dish {
	h.t.Helper()

	dish := &models.Dish{TenantID: tenant, Name: name, Category: "Mains", SellingPrice: price}
	if err := h.DB.CreateDish(dish); err != nil {
		h.t.Fatalf("create dish: %v", err)
	}

	ing := &models.Ingredient{TenantID: tenant, Name: name + " base", UnitCost: 10.0}
	if err := h.DB.CreateIngredient(ing); err != nil {
		h.t.Fatalf("create ingredient: %v", err)
	}
	line := &models.RecipeLine{TenantID: tenant, DishID: dish.ID, IngredientID: ing.ID, Quantity: 0.4}
	if err := h.DB.AddRecipeLine(line); err != nil {
		h.t.Fatalf("add recipe line: %v", err)
	}
	return dish
}

func (h *Harness) seedEmployee(tenant, fullName, role string) *models.Employee {
	h.t.Helper()
	emp := &models.Employee{TenantID: tenant, FullName: fullName, Role: role, StartDate: "2024-01-15"}
	if err := h.DB.CreateEmployee(emp); err != nil {
		h.t.Fatalf("create employee: %v", err)
	}
	return emp
}

// configure stores a tenant configuration with the given sync direction and
// target location.
func (h *Harness) configure(tenant string, direction models.SyncDirection, locationID string) {
	h.t.Helper()
	err := h.DB.UpsertConfiguration(&models.Configuration{
		TenantID:           tenant,
		AutoSyncEnabled:    true,
		AutoSyncDirection:  direction,
		AutoSyncStaff:      true,
		AutoSyncDishes:     true,
		AutoSyncCosts:      true,
		SyncDebounceMs:     1000,
		SyncQueueBatchSize: 10,
		DefaultLocationID:  locationID,
	})
	if err != nil {
		h.t.Fatalf("upsert configuration: %v", err)
	}
}
