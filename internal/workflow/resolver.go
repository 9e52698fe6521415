package workflow

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/grocer/services/assistant/internal/models"
)

// maxSubstitutes caps how many alternatives are suggested per missing item.
const maxSubstitutes = 3

// CatalogStore is the resolver's view of the product catalog.
type CatalogStore interface {
	SearchByNames(ctx context.Context, names []string) ([]models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
}

// Resolver maps requested item names to catalog entries, applies the
// stock-availability policy and builds the two-option proposal.
type Resolver struct {
	catalog CatalogStore
	now     func() time.Time
}

// NewResolver creates a new catalog resolver
func NewResolver(catalog CatalogStore) *Resolver {
	return &Resolver{
		catalog: catalog,
		now:     time.Now,
	}
}

// Resolve turns a list of requested items into an OrderProposal with two
// option sets: available items only, and available items plus the first
// ranked substitute for each missing item. Substitutes stay suggestions;
// nothing is merged into a line without an explicit confirmation.
func (r *Resolver) Resolve(ctx context.Context, customerID string, items []models.RequestedItem) (*models.OrderProposal, error) {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	candidates, err := r.catalog.SearchByNames(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search catalog")
	}

	lines := make([]models.ResolvedLine, 0, len(items))
	for _, item := range items {
		line, err := r.resolveLine(ctx, item, candidates)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	proposal := &models.OrderProposal{
		CustomerID: customerID,
		Lines:      lines,
		Options:    buildOptions(lines),
		CreatedAt:  r.now(),
	}

	log.Info().
		Str("customer_id", customerID).
		Int("lines", len(lines)).
		Float64("option1_total", proposal.Options[0].Total).
		Float64("option2_total", proposal.Options[1].Total).
		Msg("Order proposal built")

	return proposal, nil
}

// resolveLine classifies one requested item against the catalog.
//
// Decision table (stock s, requested q):
//
//	no match            -> NOT_FOUND
//	s == 0              -> OUT_OF_STOCK
//	s > 0 and s >= q    -> AVAILABLE
//	s > 0 and s <  q    -> PARTIAL
func (r *Resolver) resolveLine(ctx context.Context, item models.RequestedItem, candidates []models.Product) (models.ResolvedLine, error) {
	line := models.ResolvedLine{
		RequestedName: item.Name,
		RequestedQty:  item.Quantity,
	}

	matched := bestMatch(item.Name, candidates)
	if matched == nil {
		line.Status = models.LineNotFound
		category := nearestCategory(item.Name, candidates)
		if category != "" {
			subs, err := r.substitutes(ctx, category, "")
			if err != nil {
				return line, err
			}
			line.Substitutes = subs
		}
		return line, nil
	}

	line.Product = matched
	switch {
	case matched.Stock == 0:
		line.Status = models.LineOutOfStock
		subs, err := r.substitutes(ctx, matched.Category, matched.ProductID)
		if err != nil {
			return line, err
		}
		line.Substitutes = subs
	case matched.Stock >= item.Quantity:
		line.Status = models.LineAvailable
		line.FulfillableQty = item.Quantity
	default:
		// The quantity shown is what is actually in stock, never the
		// requested quantity.
		line.Status = models.LinePartial
		line.FulfillableQty = matched.Stock
	}

	return line, nil
}

// substitutes returns up to maxSubstitutes same-category alternatives,
// ranked in-stock first, then price ascending, excluding the original.
func (r *Resolver) substitutes(ctx context.Context, category, excludeProductID string) ([]models.Product, error) {
	entries, err := r.catalog.ListByCategory(ctx, category)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list substitute candidates")
	}

	ranked := make([]models.Product, 0, len(entries))
	for _, p := range entries {
		if p.ProductID == excludeProductID {
			continue
		}
		ranked = append(ranked, p)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].InStock() != ranked[j].InStock() {
			return ranked[i].InStock()
		}
		if ranked[i].Price != ranked[j].Price {
			return ranked[i].Price < ranked[j].Price
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > maxSubstitutes {
		ranked = ranked[:maxSubstitutes]
	}
	return ranked, nil
}

// buildOptions builds the two proposal options. Option 1 carries the
// AVAILABLE and PARTIAL lines at their fulfillable quantity; option 2
// adds the first-ranked in-stock substitute for each OUT_OF_STOCK or
// NOT_FOUND line at the substitute's own price.
func buildOptions(lines []models.ResolvedLine) []models.OptionSet {
	option1 := models.OptionSet{Number: 1, Label: "Available items only"}
	option2 := models.OptionSet{Number: 2, Label: "Available items plus substitutes"}

	for _, line := range lines {
		switch line.Status {
		case models.LineAvailable, models.LinePartial:
			entry := entryFor(*line.Product, line.FulfillableQty)
			option1.Entries = append(option1.Entries, entry)
			option2.Entries = append(option2.Entries, entry)
		case models.LineOutOfStock, models.LineNotFound:
			sub := firstInStock(line.Substitutes)
			if sub == nil {
				continue
			}
			option2.Entries = append(option2.Entries, entryFor(*sub, line.RequestedQty))
		}
	}

	option1.Total = sumEntries(option1.Entries)
	option2.Total = sumEntries(option2.Entries)
	return []models.OptionSet{option1, option2}
}

func entryFor(p models.Product, quantity int) models.OptionEntry {
	return models.OptionEntry{
		ProductID: p.ProductID,
		Name:      p.Name,
		Category:  p.Category,
		Unit:      p.Unit,
		Quantity:  quantity,
		UnitPrice: p.Price,
		Subtotal:  p.Price * float64(quantity),
	}
}

func firstInStock(products []models.Product) *models.Product {
	for i := range products {
		if products[i].InStock() {
			return &products[i]
		}
	}
	return nil
}

func sumEntries(entries []models.OptionEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Subtotal
	}
	return total
}
