package db

import (
	"fmt"

	"github.com/marcus/possync/internal/models"
)

// changeTables names the table holding each locally-editable entity type.
var changeTables = map[models.EntityType]string{
	models.EntityDish:       "dishes",
	models.EntityEmployee:   "employees",
	models.EntityIngredient: "ingredients",
}

// ListUnsyncedLocalIDs returns the IDs of entities that have never been
// synced or have been edited since their last sync, oldest edit first.
func (db *DB) ListUnsyncedLocalIDs(tenantID string, entityType models.EntityType) ([]string, error) {
	table, ok := changeTables[entityType]
	if !ok {
		return nil, fmt.Errorf("entity type %s has no change tracking", entityType)
	}

	rows, err := db.conn.Query(`
		SELECT e.id FROM `+table+` e
		LEFT JOIN mappings m ON m.tenant_id = e.tenant_id AND m.entity_type = ? AND m.local_id = e.id
		WHERE e.tenant_id = ?
		  AND (m.id IS NULL OR m.last_synced_at IS NULL OR e.updated_at > m.last_synced_at)
		ORDER BY e.updated_at
	`, entityType, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
