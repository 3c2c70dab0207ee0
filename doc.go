// Package sqlbind ties named database binds, scoped sessions, and generic
// repositories together. The database package owns engines and transaction
// lifecycle, the repository package implements CRUD and pagination on Bun,
// and this package adds the unit of work that lets several repositories
// share one transaction.
package sqlbind
