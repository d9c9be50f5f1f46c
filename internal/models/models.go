package models

import (
	"time"
)

// EntityType identifies which kind of entity a mapping or queued operation
// refers to.
type EntityType string

const (
	EntityDish       EntityType = "dish"
	EntityRecipe     EntityType = "recipe"
	EntityIngredient EntityType = "ingredient"
	EntityEmployee   EntityType = "employee"
	EntityLocation   EntityType = "location"
)

// SyncDirection controls which way changes flow for a mapping.
type SyncDirection string

const (
	DirectionBidirectional SyncDirection = "bidirectional"
	DirectionRemoteToLocal SyncDirection = "remote_to_local"
	DirectionLocalToRemote SyncDirection = "local_to_remote"
)

// OperationType labels sync log entries by the reconciler that produced them.
type OperationType string

const (
	OpSyncCatalog OperationType = "sync_catalog"
	OpSyncOrders  OperationType = "sync_orders"
	OpSyncStaff   OperationType = "sync_staff"
	OpSyncCosts   OperationType = "sync_costs"
	OpInitialSync OperationType = "initial_sync"
)

// SyncStatus is the outcome recorded for a single sync attempt.
type SyncStatus string

const (
	SyncStatusSuccess  SyncStatus = "success"
	SyncStatusError    SyncStatus = "error"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusSkipped  SyncStatus = "skipped"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusRetrying SyncStatus = "retrying"
)

// QueueOperation is the kind of change a queued operation carries.
type QueueOperation string

const (
	OpCreate QueueOperation = "create"
	OpUpdate QueueOperation = "update"
	OpDelete QueueOperation = "delete"
)

// Priority orders queued operations within a tenant's queue.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// EmployeeStatus represents local employment status.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeInactive   EmployeeStatus = "inactive"
	EmployeeTerminated EmployeeStatus = "terminated"
)

// InitialSyncStatus tracks the one-time bulk sync per tenant.
type InitialSyncStatus string

const (
	InitialSyncNone       InitialSyncStatus = ""
	InitialSyncInProgress InitialSyncStatus = "in_progress"
	InitialSyncCompleted  InitialSyncStatus = "completed"
	InitialSyncFailed     InitialSyncStatus = "failed"
)

// Mapping is the stored identity correspondence between a local entity and
// its counterpart in the POS platform. RemoteLocationID is empty for
// location-agnostic mappings.
type Mapping struct {
	ID                   string
	TenantID             string
	EntityType           EntityType
	LocalID              string
	RemoteID             string
	RemoteLocationID     string
	SyncDirection        SyncDirection
	LastSyncedAt         *time.Time
	LastSyncedFromRemote *time.Time
	LastSyncedToRemote   *time.Time
	SyncMetadata         map[string]string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SyncLogEntry is one audit row for a sync attempt. Rows are insert-only;
// only the retry bookkeeping fields may advance after insert, and only while
// a retry is outstanding.
type SyncLogEntry struct {
	ID            int64
	TenantID      string
	OperationType OperationType
	Direction     SyncDirection
	EntityType    EntityType
	EntityID      string
	RemoteID      string
	Status        SyncStatus
	ErrorMessage  string
	ErrorDetails  string
	SyncMetadata  string
	RetryCount    int
	MaxRetries    int
	NextRetryAt   *time.Time
	CreatedAt     time.Time
}

// Dish is a menu item in the kitchen-management store. Cost fields are
// recomputed by the cost reconciler; SellingPrice is GST-inclusive.
type Dish struct {
	ID                    string
	TenantID              string
	Name                  string
	Description           string
	Category              string
	SellingPrice          float64
	TotalCost             float64
	FoodCostPercent       float64
	GrossProfit           float64
	GrossProfitMargin     float64
	ContributingMargin    float64
	ContributingMarginPct float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Employee is a staff record.
type Employee struct {
	ID        string
	TenantID  string
	FullName  string
	Email     string
	Role      string
	Status    EmployeeStatus
	StartDate string // yyyy-mm-dd, empty if unknown
	EndDate   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ingredient is a purchasable input. WasteUnitCost, when non-zero, is the
// waste-inclusive cost per unit and supersedes the waste-percentage
// adjustment during costing.
type Ingredient struct {
	ID              string
	TenantID        string
	Name            string
	Category        string
	UnitCost        float64
	WasteUnitCost   float64
	YieldPercentage float64
	WastePercentage float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecipeLine attaches an ingredient to a dish through its recipe, with the
// quantity used per dish.
type RecipeLine struct {
	ID           string
	TenantID     string
	DishID       string
	IngredientID string
	Quantity     float64
	CreatedAt    time.Time
}

// DishIngredient is an ingredient attached directly to a dish, outside any
// recipe.
type DishIngredient struct {
	TenantID     string
	DishID       string
	IngredientID string
	Quantity     float64
}

// SalesAggregate is the per-dish, per-date rollup produced by the orders
// reconciler. Date is yyyy-mm-dd.
type SalesAggregate struct {
	ID                   int64
	TenantID             string
	DishID               string
	Date                 string
	NumberSold           int
	PopularityPercentage float64
	UpdatedAt            time.Time
}

// POSMenuItem is the denormalized mirror of a remote catalog item, dual-
// written by catalog sync as a read optimization for the rest of the app.
type POSMenuItem struct {
	TenantID    string
	RemoteID    string
	LocationID  string
	Name        string
	Description string
	Price       float64
	SyncedAt    time.Time
}

// Configuration holds the per-tenant sync settings plus the initial-sync
// status fields the engine owns.
type Configuration struct {
	TenantID               string
	AutoSyncEnabled        bool
	AutoSyncDirection      SyncDirection
	AutoSyncStaff          bool
	AutoSyncDishes         bool
	AutoSyncCosts          bool
	SyncDebounceMs         int
	SyncQueueBatchSize     int
	DefaultLocationID      string
	InitialSyncStatus      InitialSyncStatus
	InitialSyncStartedAt   *time.Time
	InitialSyncCompletedAt *time.Time
	InitialSyncError       string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
