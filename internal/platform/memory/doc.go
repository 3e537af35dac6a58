// Package memory implements the store interfaces in process memory. It
// backs service tests and the server's --memory flag, and honors the same
// versioning contract as the PostgreSQL stores.
package memory
