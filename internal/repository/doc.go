// Package repository implements the data access layer for the City Quest API.
//
// Each repository struct handles one SurrealDB table. Entities are stored as
// the JSON form of their model struct; record.go holds the shared create,
// get, replace and delete helpers, and helpers.go converts SurrealDB record
// IDs and response envelopes.
//
// # Conventions
//
//   - Constructor function (NewXxxRepository) accepts a database.Database
//   - GetByID and single-row lookups return nil, nil when nothing matches
//   - type::record() for safe ID handling
//   - Timestamps are set by the services, not by time::now()
//
// # Example Usage
//
//	repo := NewQuestRepository(db)
//	quests, err := repo.List(ctx, model.QuestFilter{City: "Москва", ActiveOnly: true})
package repository
