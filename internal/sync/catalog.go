package sync

import (
	"fmt"
	"math"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

// centsToPrice converts the POS minor-unit amount to a decimal price.
func centsToPrice(cents int64) float64 {
	return float64(cents) / 100
}

// priceToCents converts a decimal price to the POS minor-unit amount.
func priceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// SyncCatalog reconciles dishes with the POS catalog in the directions the
// tenant's configuration allows.
func (s *Service) SyncCatalog(tenantID string) (*Result, error) {
	cfg, err := s.config(tenantID)
	if err != nil {
		return nil, err
	}

	result := newResult(models.OpSyncCatalog, cfg.AutoSyncDirection)

	if cfg.AutoSyncDirection != models.DirectionRemoteToLocal {
		if err := s.pushCatalog(tenantID, result); err != nil {
			return result.finish(), err
		}
	}
	if cfg.AutoSyncDirection != models.DirectionLocalToRemote {
		if err := s.pullCatalog(tenantID, cfg, result); err != nil {
			return result.finish(), err
		}
	}

	s.logger.Info("catalog sync finished", "tenant", tenantID, "summary", result.Summary())
	return result.finish(), nil
}

func (s *Service) pushCatalog(tenantID string, result *Result) error {
	dishes, err := s.db.ListDishes(tenantID, nil)
	if err != nil {
		return fmt.Errorf("list dishes: %w", err)
	}
	for i := range dishes {
		created, err := s.PushDish(tenantID, dishes[i].ID)
		switch {
		case err != nil:
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("dish %s: %v", dishes[i].ID, err))
		case created:
			result.Created++
		default:
			result.Updated++
		}
	}
	return nil
}

// PushDish sends one dish to the POS catalog, creating the remote item and
// its mapping on first contact. Returns true when the remote item was
// created rather than updated.
func (s *Service) PushDish(tenantID, dishID string) (bool, error) {
	dish, err := s.db.GetDish(tenantID, dishID)
	if err != nil {
		return false, err
	}

	mapping, err := s.mapper.GetByLocalID(tenantID, models.EntityDish, dishID)
	if err != nil {
		return false, err
	}
	if mapping != nil && mapping.SyncDirection == models.DirectionRemoteToLocal {
		// The POS owns this dish; pushing would clobber it.
		return false, nil
	}

	obj := &posclient.CatalogObject{
		Type: "ITEM",
		ItemData: &posclient.ItemData{
			Name:        dish.Name,
			Description: dish.Description,
			Variations: []posclient.ItemVariation{
				{Name: "Regular", PriceMoney: &posclient.Money{Amount: priceToCents(dish.SellingPrice), Currency: "AUD"}},
			},
		},
	}

	created := mapping == nil
	if mapping != nil {
		// Re-read the remote object so the write carries the current
		// version and keeps custom attributes intact.
		remote, err := s.pos.RetrieveCatalogObject(mapping.RemoteID)
		if err != nil {
			s.auditError(tenantID, models.OpSyncCatalog, models.DirectionLocalToRemote, models.EntityDish, dishID, mapping.RemoteID, err)
			return false, fmt.Errorf("retrieve %s: %w", mapping.RemoteID, err)
		}
		obj.ID = mapping.RemoteID
		obj.Version = remote.Version
		obj.CustomAttributes = remote.CustomAttributes
		obj.PresentAtLocationIDs = remote.PresentAtLocationIDs
		if remote.ItemData != nil && len(remote.ItemData.Variations) > 0 {
			obj.ItemData.Variations[0].ID = remote.ItemData.Variations[0].ID
			obj.ItemData.Variations[0].Version = remote.ItemData.Variations[0].Version
		}
	}

	saved, err := s.pos.UpsertCatalogObject(obj)
	if err != nil {
		remoteID := obj.ID
		s.auditError(tenantID, models.OpSyncCatalog, models.DirectionLocalToRemote, models.EntityDish, dishID, remoteID, err)
		return false, fmt.Errorf("upsert catalog object: %w", err)
	}

	if mapping == nil {
		mapping, err = s.mapper.FindOrCreate(tenantID, models.EntityDish, dishID, saved.ID, "")
		if err != nil {
			return false, fmt.Errorf("create mapping: %w", err)
		}
	}
	if err := s.mapper.TouchSynced(mapping.ID, models.DirectionLocalToRemote); err != nil {
		return false, err
	}
	s.cacheMenuItem(tenantID, saved)

	s.auditSuccess(tenantID, models.OpSyncCatalog, models.DirectionLocalToRemote, models.EntityDish, dishID, saved.ID)
	return created, nil
}

func (s *Service) pullCatalog(tenantID string, cfg *models.Configuration, result *Result) error {
	objects, err := s.pos.ListAllCatalog()
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	for i := range objects {
		obj := &objects[i]
		if obj.Type != "ITEM" || obj.IsDeleted || obj.ItemData == nil {
			result.Skipped++
			continue
		}
		if err := s.pullCatalogObject(tenantID, obj, result); err != nil {
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("object %s: %v", obj.ID, err))
			s.auditError(tenantID, models.OpSyncCatalog, models.DirectionRemoteToLocal, models.EntityDish, "", obj.ID, err)
		}
	}
	return nil
}

func (s *Service) pullCatalogObject(tenantID string, obj *posclient.CatalogObject, result *Result) error {
	s.cacheMenuItem(tenantID, obj)
	price := remotePrice(obj)

	mapping, err := s.mapper.GetByRemoteID(tenantID, models.EntityDish, obj.ID, "")
	if err != nil {
		return err
	}

	if mapping == nil {
		dish := &models.Dish{
			TenantID:     tenantID,
			Name:         obj.ItemData.Name,
			Description:  obj.ItemData.Description,
			SellingPrice: price,
		}
		if err := s.db.CreateDish(dish); err != nil {
			return fmt.Errorf("create dish: %w", err)
		}
		mapping = &models.Mapping{
			TenantID:      tenantID,
			EntityType:    models.EntityDish,
			LocalID:       dish.ID,
			RemoteID:      obj.ID,
			SyncDirection: models.DirectionBidirectional,
		}
		if err := s.mapper.Create(mapping); err != nil {
			return fmt.Errorf("create mapping: %w", err)
		}
		if err := s.mapper.TouchSynced(mapping.ID, models.DirectionRemoteToLocal); err != nil {
			return err
		}
		s.auditSuccess(tenantID, models.OpSyncCatalog, models.DirectionRemoteToLocal, models.EntityDish, dish.ID, obj.ID)
		result.Created++
		return nil
	}

	if mapping.SyncDirection == models.DirectionLocalToRemote {
		// Local is the source of truth for this dish.
		result.Skipped++
		return nil
	}

	dish, err := s.db.GetDish(tenantID, mapping.LocalID)
	if err != nil {
		return err
	}

	// Both sides changed since the last sync: surface it instead of
	// silently clobbering the local edit.
	if mapping.SyncDirection == models.DirectionBidirectional &&
		mapping.LastSyncedAt != nil && dish.UpdatedAt.After(*mapping.LastSyncedAt) &&
		(dish.Name != obj.ItemData.Name || dish.SellingPrice != price) {
		s.audit(&models.SyncLogEntry{
			TenantID:      tenantID,
			OperationType: models.OpSyncCatalog,
			Direction:     models.DirectionRemoteToLocal,
			EntityType:    models.EntityDish,
			EntityID:      dish.ID,
			RemoteID:      obj.ID,
			Status:        models.SyncStatusConflict,
			ErrorMessage:  "local and remote both changed since last sync",
		})
		result.Conflicts++
		return nil
	}

	dish.Name = obj.ItemData.Name
	dish.Description = obj.ItemData.Description
	dish.SellingPrice = price
	if err := s.db.UpdateDish(dish); err != nil {
		return fmt.Errorf("update dish: %w", err)
	}
	if err := s.mapper.TouchSynced(mapping.ID, models.DirectionRemoteToLocal); err != nil {
		return err
	}
	s.auditSuccess(tenantID, models.OpSyncCatalog, models.DirectionRemoteToLocal, models.EntityDish, dish.ID, obj.ID)
	result.Updated++
	return nil
}

// cacheMenuItem dual-writes the remote item into pos_menu_items. Cache
// failures are logged and swallowed.
func (s *Service) cacheMenuItem(tenantID string, obj *posclient.CatalogObject) {
	if obj == nil || obj.ItemData == nil {
		return
	}
	locationID := ""
	if len(obj.PresentAtLocationIDs) > 0 {
		locationID = obj.PresentAtLocationIDs[0]
	}
	item := &models.POSMenuItem{
		TenantID:    tenantID,
		RemoteID:    obj.ID,
		LocationID:  locationID,
		Name:        obj.ItemData.Name,
		Description: obj.ItemData.Description,
		Price:       remotePrice(obj),
	}
	if err := s.db.UpsertPOSMenuItem(item); err != nil {
		s.logger.Warn("cache menu item", "tenant", tenantID, "remote_id", obj.ID, "error", err)
	}
}

func remotePrice(obj *posclient.CatalogObject) float64 {
	if obj.ItemData == nil || len(obj.ItemData.Variations) == 0 || obj.ItemData.Variations[0].PriceMoney == nil {
		return 0
	}
	return centsToPrice(obj.ItemData.Variations[0].PriceMoney.Amount)
}
