// Package password hashes and verifies member passwords.
//
// New hashes use Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes ($2a$, $2b$, $2y$) carried over from older member rows are
// still verified. [Multi] picks the right algorithm from the hash prefix and
// reports through NeedsUpgrade when a stored hash should be replaced.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
package password
