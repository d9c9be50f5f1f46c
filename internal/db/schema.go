package db

// SchemaVersion is the current database schema version.
const SchemaVersion = 2

const schema = `
-- Per-tenant sync configuration. The engine only writes the initial_sync_*
-- columns; everything else is owned by the host application.
CREATE TABLE IF NOT EXISTS configurations (
    tenant_id TEXT PRIMARY KEY,
    auto_sync_enabled INTEGER NOT NULL DEFAULT 1,
    auto_sync_direction TEXT NOT NULL DEFAULT 'local_to_remote',
    auto_sync_staff INTEGER NOT NULL DEFAULT 1,
    auto_sync_dishes INTEGER NOT NULL DEFAULT 1,
    auto_sync_costs INTEGER NOT NULL DEFAULT 1,
    sync_debounce_ms INTEGER NOT NULL DEFAULT 1000,
    sync_queue_batch_size INTEGER NOT NULL DEFAULT 10,
    default_location_id TEXT NOT NULL DEFAULT '',
    initial_sync_status TEXT NOT NULL DEFAULT '',
    initial_sync_started_at DATETIME,
    initial_sync_completed_at DATETIME,
    initial_sync_error TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Identity mappings between local entities and POS entities.
-- remote_location_id is '' for location-agnostic mappings; storing '' rather
-- than NULL keeps the unique index effective (sqlite treats NULLs as
-- distinct).
CREATE TABLE IF NOT EXISTS mappings (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    local_id TEXT NOT NULL,
    remote_id TEXT NOT NULL,
    remote_location_id TEXT NOT NULL DEFAULT '',
    sync_direction TEXT NOT NULL DEFAULT 'bidirectional',
    last_synced_at DATETIME,
    last_synced_from_remote DATETIME,
    last_synced_to_remote DATETIME,
    sync_metadata TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(tenant_id, entity_type, local_id),
    UNIQUE(tenant_id, entity_type, remote_id, remote_location_id)
);

-- Append-only sync audit log.
CREATE TABLE IF NOT EXISTS sync_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    operation_type TEXT NOT NULL,
    direction TEXT NOT NULL DEFAULT '',
    entity_type TEXT NOT NULL DEFAULT '',
    entity_id TEXT NOT NULL DEFAULT '',
    remote_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    error_details TEXT NOT NULL DEFAULT '',
    sync_metadata TEXT NOT NULL DEFAULT '',
    retry_count INTEGER NOT NULL DEFAULT 0,
    max_retries INTEGER NOT NULL DEFAULT 0,
    next_retry_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sync_log_tenant ON sync_log(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_sync_log_status ON sync_log(tenant_id, status);

-- Menu items.
CREATE TABLE IF NOT EXISTS dishes (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    selling_price REAL NOT NULL DEFAULT 0,
    total_cost REAL NOT NULL DEFAULT 0,
    food_cost_percent REAL NOT NULL DEFAULT 0,
    gross_profit REAL NOT NULL DEFAULT 0,
    gross_profit_margin REAL NOT NULL DEFAULT 0,
    contributing_margin REAL NOT NULL DEFAULT 0,
    contributing_margin_pct REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dishes_tenant ON dishes(tenant_id);

-- Staff records.
CREATE TABLE IF NOT EXISTS employees (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    start_date TEXT NOT NULL DEFAULT '',
    end_date TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_employees_tenant ON employees(tenant_id, status);

-- Purchasable inputs.
CREATE TABLE IF NOT EXISTS ingredients (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    unit_cost REAL NOT NULL DEFAULT 0,
    waste_unit_cost REAL NOT NULL DEFAULT 0,
    yield_percentage REAL NOT NULL DEFAULT 100,
    waste_percentage REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Recipe lines: ingredient usage per dish via its recipe.
CREATE TABLE IF NOT EXISTS recipes (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    dish_id TEXT NOT NULL,
    ingredient_id TEXT NOT NULL,
    quantity REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(tenant_id, dish_id, ingredient_id),
    FOREIGN KEY (dish_id) REFERENCES dishes(id),
    FOREIGN KEY (ingredient_id) REFERENCES ingredients(id)
);

-- Ingredients attached directly to a dish, outside any recipe.
CREATE TABLE IF NOT EXISTS dish_ingredients (
    tenant_id TEXT NOT NULL,
    dish_id TEXT NOT NULL,
    ingredient_id TEXT NOT NULL,
    quantity REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (tenant_id, dish_id, ingredient_id),
    FOREIGN KEY (dish_id) REFERENCES dishes(id),
    FOREIGN KEY (ingredient_id) REFERENCES ingredients(id)
);

-- Per-dish per-date sales rollups from the orders reconciler.
CREATE TABLE IF NOT EXISTS sales_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    dish_id TEXT NOT NULL,
    date TEXT NOT NULL,
    number_sold INTEGER NOT NULL DEFAULT 0,
    popularity_percentage REAL NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(tenant_id, dish_id, date)
);

-- Denormalized POS catalog mirror, dual-written by catalog sync.
CREATE TABLE IF NOT EXISTS pos_menu_items (
    tenant_id TEXT NOT NULL,
    remote_id TEXT NOT NULL,
    location_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price REAL NOT NULL DEFAULT 0,
    synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tenant_id, remote_id)
);

-- Schema version bookkeeping.
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration is a single schema migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations are applied in order by RunMigrations. Version 1 is the base
// schema above.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "index sales_data by tenant and date for popularity reads",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_sales_tenant_date ON sales_data(tenant_id, date);`,
	},
}
