// Package database provides named database binds built on top of Bun:
// connection management, transactional session handling with
// execution-context scoping, background release tasks, configuration
// types, logging, and the error taxonomy shared by the repository and
// unit-of-work layers.
package database
