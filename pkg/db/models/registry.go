package models

// All lists every persisted model in dependency order. SQLite-backed dev
// environments and repository tests build their schema from it.
func All() []any {
	return []any{
		&ListingPackage{},
		&PackageItem{},
		&ListingTierPolicy{},
		&Order{},
		&OrderItem{},
		&InventoryEntry{},
		&Listing{},
		&ListingAuditEntry{},
		&ListingPriceHistory{},
		&ListingReport{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&PaymentLedgerEvent{},
	}
}
