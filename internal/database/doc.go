// Package database manages the PostgreSQL connection pool backing the
// selection and price history.
package database
