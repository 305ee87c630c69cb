package rating

import "testing"

// Both stores must satisfy the same contract; this pins the SQL
// implementation into every test build even though its queries only run
// against a live database.
func TestStoresSatisfyRepository(t *testing.T) {
	var repo Repository

	repo = NewSQLRepository(nil)
	if repo == nil {
		t.Fatalf("expected SQL repository to satisfy Repository")
	}
	repo = NewMemoryRepo(nil)
	if repo == nil {
		t.Fatalf("expected memory repository to satisfy Repository")
	}
}
