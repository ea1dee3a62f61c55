// Package password hashes and verifies user passwords.
//
// New hashes use Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) are still verified so existing user tables
// keep working; [Verifier.NeedsUpgrade] reports them for re-hashing.
//
// This package never stores passwords and never logs them.
package password
