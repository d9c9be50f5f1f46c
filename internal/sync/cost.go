package sync

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/marcus/possync/internal/models"
)

// gstRate is the Australian goods and services tax. Selling prices are
// stored GST-inclusive; all margin math runs on the ex-GST price.
const gstRate = 0.10

// consumablesCategory names the ingredient category whose items are costed
// at face value, with no yield or waste adjustment.
const consumablesCategory = "Consumables"

// CostMetrics is the full set of derived numbers for one dish.
type CostMetrics struct {
	TotalCost             float64
	SellingPriceExGST     float64
	FoodCostPercent       float64
	GrossProfit           float64
	GrossProfitMargin     float64
	ContributingMargin    float64
	ContributingMarginPct float64
}

// ComputeDishCost derives the dish's cost metrics from its recipe lines and
// directly attached ingredients.
func (s *Service) ComputeDishCost(tenantID, dishID string) (*CostMetrics, error) {
	dish, err := s.db.GetDish(tenantID, dishID)
	if err != nil {
		return nil, err
	}

	var total float64

	lines, ingredients, err := s.db.GetRecipeLines(tenantID, dishID)
	if err != nil {
		return nil, fmt.Errorf("recipe lines: %w", err)
	}
	for i := range lines {
		total += ingredientCost(&ingredients[i]) * lines[i].Quantity
	}

	attached, attachedIngredients, err := s.db.GetDishIngredients(tenantID, dishID)
	if err != nil {
		return nil, fmt.Errorf("dish ingredients: %w", err)
	}
	for i := range attached {
		total += ingredientCost(&attachedIngredients[i]) * attached[i].Quantity
	}

	m := &CostMetrics{
		TotalCost:         round2(total),
		SellingPriceExGST: round2(dish.SellingPrice / (1 + gstRate)),
	}
	if m.SellingPriceExGST > 0 {
		m.FoodCostPercent = round2(m.TotalCost / m.SellingPriceExGST * 100)
		m.GrossProfit = round2(m.SellingPriceExGST - m.TotalCost)
		m.GrossProfitMargin = round2(m.GrossProfit / m.SellingPriceExGST * 100)
	}

	// Contribution weights the per-unit profit by the trailing month's
	// sales volume.
	sold, err := s.unitsSoldTrailing(tenantID, dishID, 30)
	if err != nil {
		return nil, err
	}
	m.ContributingMargin = round2(m.GrossProfit * float64(sold))
	if dish.SellingPrice > 0 {
		m.ContributingMarginPct = round2(m.GrossProfit / dish.SellingPrice * 100)
	}
	return m, nil
}

func (s *Service) unitsSoldTrailing(tenantID, dishID string, days int) (int, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	aggs, err := s.db.GetSalesForDish(tenantID, dishID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("sales window: %w", err)
	}
	total := 0
	for i := range aggs {
		total += aggs[i].NumberSold
	}
	return total, nil
}

// ingredientCost returns the effective cost per recipe unit of an
// ingredient. A non-zero waste-inclusive unit cost supersedes the waste
// percentage; Consumables are costed at face value.
func ingredientCost(ing *models.Ingredient) float64 {
	unit := ing.UnitCost
	wasteAdjusted := false
	if ing.WasteUnitCost > 0 {
		unit = ing.WasteUnitCost
		wasteAdjusted = true
	}

	if ing.Category == consumablesCategory {
		return unit
	}

	yield := ing.YieldPercentage
	if yield <= 0 || yield > 100 {
		yield = 100
	}
	unit /= yield / 100

	if !wasteAdjusted && ing.WastePercentage > 0 && ing.WastePercentage < 100 {
		unit /= 1 - ing.WastePercentage/100
	}
	return unit
}

// RecostDish recomputes one dish's metrics, stores them locally, and pushes
// them to the POS item's custom attributes when the dish is mapped.
// Returns true when the metrics reached the POS.
func (s *Service) RecostDish(tenantID, dishID string) (bool, error) {
	metrics, err := s.ComputeDishCost(tenantID, dishID)
	if err != nil {
		return false, err
	}

	dish, err := s.db.GetDish(tenantID, dishID)
	if err != nil {
		return false, err
	}
	dish.TotalCost = metrics.TotalCost
	dish.FoodCostPercent = metrics.FoodCostPercent
	dish.GrossProfit = metrics.GrossProfit
	dish.GrossProfitMargin = metrics.GrossProfitMargin
	dish.ContributingMargin = metrics.ContributingMargin
	dish.ContributingMarginPct = metrics.ContributingMarginPct
	if err := s.db.UpdateDishCosts(dish); err != nil {
		return false, fmt.Errorf("store cost metrics: %w", err)
	}

	mapping, err := s.mapper.GetByLocalID(tenantID, models.EntityDish, dishID)
	if err != nil {
		return false, err
	}
	if mapping == nil {
		// Nothing on the POS side to annotate yet.
		return false, nil
	}

	if err := s.pushCostAttributes(tenantID, dishID, mapping.RemoteID, metrics); err != nil {
		s.auditError(tenantID, models.OpSyncCosts, models.DirectionLocalToRemote, models.EntityDish, dishID, mapping.RemoteID, err)
		return false, err
	}
	s.auditSuccess(tenantID, models.OpSyncCosts, models.DirectionLocalToRemote, models.EntityDish, dishID, mapping.RemoteID)
	return true, nil
}

// pushCostAttributes writes the metrics into the remote item's custom
// attributes with a read-modify-write, so unrelated attributes and the
// object version survive.
func (s *Service) pushCostAttributes(tenantID, dishID, remoteID string, m *CostMetrics) error {
	obj, err := s.pos.RetrieveCatalogObject(remoteID)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", remoteID, err)
	}

	if obj.CustomAttributes == nil {
		obj.CustomAttributes = make(map[string]string)
	}
	obj.CustomAttributes["food_cost"] = formatMoney(m.TotalCost)
	obj.CustomAttributes["food_cost_percent"] = formatMoney(m.FoodCostPercent)
	obj.CustomAttributes["gross_profit"] = formatMoney(m.GrossProfit)
	obj.CustomAttributes["gross_profit_margin"] = formatMoney(m.GrossProfitMargin)
	obj.CustomAttributes["cost_updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := s.pos.UpsertCatalogObject(obj); err != nil {
		return fmt.Errorf("write cost attributes: %w", err)
	}
	return nil
}

// SyncCosts recomputes and pushes cost metrics for every dish.
func (s *Service) SyncCosts(tenantID string) (*Result, error) {
	result := newResult(models.OpSyncCosts, models.DirectionLocalToRemote)

	dishes, err := s.db.ListDishes(tenantID, nil)
	if err != nil {
		return result.finish(), fmt.Errorf("list dishes: %w", err)
	}

	for i := range dishes {
		pushed, err := s.RecostDish(tenantID, dishes[i].ID)
		switch {
		case err != nil:
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("dish %s: %v", dishes[i].ID, err))
		case pushed:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	s.logger.Info("cost sync finished", "tenant", tenantID, "summary", result.Summary())
	return result.finish(), nil
}

// RecostDishesUsingIngredient recomputes every dish whose recipe or direct
// attachments reference the ingredient. Used when an ingredient's cost
// changes.
func (s *Service) RecostDishesUsingIngredient(tenantID, ingredientID string) (*Result, error) {
	result := newResult(models.OpSyncCosts, models.DirectionLocalToRemote)

	dishIDs, err := s.db.DishIDsUsingIngredient(tenantID, ingredientID)
	if err != nil {
		return result.finish(), err
	}
	for _, dishID := range dishIDs {
		pushed, err := s.RecostDish(tenantID, dishID)
		switch {
		case err != nil:
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("dish %s: %v", dishID, err))
		case pushed:
			result.Updated++
		default:
			result.Skipped++
		}
	}
	return result.finish(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
