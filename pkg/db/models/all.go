package models

// All lists every persisted model in dependency order, for SQLite AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&VendorProfile{},
		&Category{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Review{},
		&Address{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
