// Package credentials verifies usernames and passwords against a user
// [Source] and implements blogauth.CredentialVerifier.
//
// [MemorySource] serves tests and single-binary demos. [PostgresSource] reads
// the users table through a pgx pool; its schema ships as embedded goose
// migrations applied by [PostgresSource.Migrate].
package credentials
