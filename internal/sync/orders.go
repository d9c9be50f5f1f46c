package sync

import (
	"fmt"
	"time"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

// SyncOrders pulls completed orders from the POS for the given window and
// rolls them up into per-dish, per-date sales aggregates. Line items with no
// mapping are skipped and logged; they never abort the pass.
func (s *Service) SyncOrders(tenantID string, from, to time.Time) (*Result, error) {
	result := newResult(models.OpSyncOrders, models.DirectionRemoteToLocal)

	cfg, err := s.config(tenantID)
	if err != nil {
		return result.finish(), err
	}
	if cfg.DefaultLocationID == "" {
		return result.finish(), fmt.Errorf("no default location configured for tenant %s", tenantID)
	}

	orders, err := s.pos.SearchAllOrders(&posclient.SearchOrdersQuery{
		LocationIDs:  []string{cfg.DefaultLocationID},
		State:        posclient.OrderCompleted,
		ClosedAfter:  from.UTC().Format(time.RFC3339),
		ClosedBefore: to.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.auditError(tenantID, models.OpSyncOrders, models.DirectionRemoteToLocal, models.EntityLocation, cfg.DefaultLocationID, "", err)
		return result.finish(), fmt.Errorf("search orders: %w", err)
	}

	// date -> local dish id -> units sold
	counts := make(map[string]map[string]int)
	for i := range orders {
		order := &orders[i]
		if order.State != posclient.OrderCompleted {
			result.Skipped++
			continue
		}
		date, err := orderDate(order)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("order %s: %v", order.ID, err))
			result.Skipped++
			continue
		}
		for _, line := range order.LineItems {
			mapping, err := s.mapper.GetByRemoteID(tenantID, models.EntityDish, line.CatalogObjectID, "")
			if err != nil {
				result.Errors++
				result.Warnings = append(result.Warnings, fmt.Sprintf("order %s: item %s: %v", order.ID, line.CatalogObjectID, err))
				continue
			}
			if mapping == nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("order %s: unmapped item %s", order.ID, line.CatalogObjectID))
				s.audit(&models.SyncLogEntry{
					TenantID:      tenantID,
					OperationType: models.OpSyncOrders,
					Direction:     models.DirectionRemoteToLocal,
					EntityType:    models.EntityDish,
					RemoteID:      line.CatalogObjectID,
					Status:        models.SyncStatusSkipped,
					ErrorMessage:  "no mapping for line item",
				})
				result.Skipped++
				continue
			}
			if counts[date] == nil {
				counts[date] = make(map[string]int)
			}
			counts[date][mapping.LocalID] += line.Quantity
		}
	}

	for date, byDish := range counts {
		total := 0
		for _, n := range byDish {
			total += n
		}
		for dishID, n := range byDish {
			popularity := 0.0
			if total > 0 {
				popularity = round2(float64(n) / float64(total) * 100)
			}
			agg := &models.SalesAggregate{
				TenantID:             tenantID,
				DishID:               dishID,
				Date:                 date,
				NumberSold:           n,
				PopularityPercentage: popularity,
			}
			if err := s.db.UpsertSalesAggregate(agg); err != nil {
				result.Errors++
				result.Warnings = append(result.Warnings, fmt.Sprintf("aggregate %s/%s: %v", dishID, date, err))
				continue
			}
			result.Updated++
		}
	}

	s.audit(&models.SyncLogEntry{
		TenantID:      tenantID,
		OperationType: models.OpSyncOrders,
		Direction:     models.DirectionRemoteToLocal,
		EntityType:    models.EntityLocation,
		EntityID:      cfg.DefaultLocationID,
		Status:        models.SyncStatusSuccess,
		SyncMetadata:  fmt.Sprintf(`{"orders":%d,"dates":%d}`, len(orders), len(counts)),
	})
	s.logger.Info("orders sync finished",
		"tenant", tenantID, "orders", len(orders), "dates", len(counts), "summary", result.Summary())
	return result.finish(), nil
}

// orderDate keys an order by the calendar day it closed, in local time.
func orderDate(order *posclient.Order) (string, error) {
	if order.ClosedAt == "" {
		return "", fmt.Errorf("completed order has no closed_at")
	}
	t, err := time.Parse(time.RFC3339, order.ClosedAt)
	if err != nil {
		return "", fmt.Errorf("parse closed_at %q: %w", order.ClosedAt, err)
	}
	return t.Local().Format("2006-01-02"), nil
}
