// Package mocks provides centralized mock implementations for testing.
//
// Each mock has function fields for its interface methods; when a field is
// nil the mock falls back to simple in-memory behavior, so most tests only
// seed data and override the one call they care about.
//
//	items := mocks.NewMockItemStore(item)
//	items.SetStatusFn = func(ctx context.Context, id uuid.UUID, f store.ItemFields) error {
//	    return errors.New("database unavailable")
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Record calls that tests need to assert on
package mocks
