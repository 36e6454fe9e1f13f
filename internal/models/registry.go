package models

// All lists every GORM model persisted by the local store.
func All() []interface{} {
	return []interface{}{
		&Wallet{},
		&Transaction{},
		&Category{},
		&Budget{},
		&Bill{},
		&Reminder{},
		&Goal{},
		&Setting{},
	}
}
