// Package testdb runs repository tests against a real SurrealDB.
//
// Each call to New connects to a fresh namespace, applies the schema and
// removes the namespace when the test ends:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    users := repository.NewUserRepository(tdb.DB)
//	}
//
// Tests are skipped unless TEST_DB_HOST is set. TEST_DB_PORT, TEST_DB_USER
// and TEST_DB_PASSWORD default to 8000, root and root.
package testdb
