package storage

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an event or price sample is inserted
	// twice. Raw feeds are append-only; derived records use Upsert instead.
	ErrDuplicateKey = errors.New("duplicate key: raw records are append-only")

	// ErrInvalidInput is returned for records that fail store-side validation,
	// such as an empty key or an unordered batch.
	ErrInvalidInput = errors.New("invalid input")
)
