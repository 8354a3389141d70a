package orders

import (
	"fmt"
	"math"

	"github.com/angelmondragon/listingz-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

// MaxLineQuantity caps the units of one package in a cart, after merging.
const MaxLineQuantity = 1000

// CartLine is one requested package and quantity.
type CartLine struct {
	PackageCode string `json:"package_code"`
	Quantity    int    `json:"quantity" validate:"max=1000"`
}

// NormalizeCart canonicalizes codes, drops blank codes and non-positive
// quantities, and merges duplicates while keeping first-seen order.
func NormalizeCart(lines []CartLine) ([]CartLine, error) {
	merged := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		code := catalog.NormalizeCode(line.PackageCode)
		if code == "" || line.Quantity <= 0 {
			continue
		}
		if line.Quantity > MaxLineQuantity {
			return nil, quantityTooLarge(code)
		}
		if idx, ok := index[code]; ok {
			if merged[idx].Quantity > MaxLineQuantity-line.Quantity {
				return nil, quantityTooLarge(code)
			}
			merged[idx].Quantity += line.Quantity
			continue
		}
		index[code] = len(merged)
		merged = append(merged, CartLine{PackageCode: code, Quantity: line.Quantity})
	}
	if len(merged) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCart, "cart has no purchasable lines")
	}
	return merged, nil
}

func quantityTooLarge(code string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidCart, fmt.Sprintf("quantity for %s exceeds %d", code, MaxLineQuantity)).
		WithDetails(map[string]any{"package_code": code, "max_quantity": MaxLineQuantity})
}

// lineTotal multiplies without wrapping; ok is false when the product does
// not fit in an int64.
func lineTotal(unitPrice int64, qty int) (int64, bool) {
	if unitPrice < 0 || qty < 0 {
		return 0, false
	}
	if qty != 0 && unitPrice > math.MaxInt64/int64(qty) {
		return 0, false
	}
	return unitPrice * int64(qty), true
}
