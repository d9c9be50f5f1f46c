package sync

import (
	"github.com/marcus/possync/internal/models"
)

// watchedTypes are the entity types the change scan covers, in the order
// their work should be enqueued.
var watchedTypes = []models.EntityType{
	models.EntityEmployee,
	models.EntityDish,
	models.EntityIngredient,
}

// PendingLocalChanges returns queue items for every local entity that has
// never been synced or has been edited since its last sync.
func (s *Service) PendingLocalChanges(tenantID string) ([]Item, error) {
	var items []Item
	for _, entityType := range watchedTypes {
		ids, err := s.db.ListUnsyncedLocalIDs(tenantID, entityType)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			items = append(items, Item{
				TenantID:   tenantID,
				EntityType: entityType,
				EntityID:   id,
				Operation:  models.OpUpdate,
				Priority:   models.PriorityNormal,
			})
		}
	}
	return items, nil
}
