// Package repository provides a generic repository abstraction built on
// Bun for CRUD operations, filtered queries, and offset- and cursor-based
// pagination, on top of the session handling in the database package.
package repository
