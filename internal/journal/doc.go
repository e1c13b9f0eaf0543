// Package journal keeps a SQLite log of pipeline runs.
//
// Each run stores its policy, overall status and one row per input and
// output with the item's status, failing stage and error text. Runs are
// ordered by the engine's sequence number, so `multiio history` lists
// them in execution order even when wall clocks disagree.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000ms
//   - foreign_keys=ON
//   - user_version tracks schema migrations
package journal
