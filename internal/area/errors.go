package area

import "errors"

var (
	// ErrAreaNotFound is returned when an area ID does not exist.
	ErrAreaNotFound = errors.New("area not found")

	// ErrSlugConflict is returned when another area already holds the slug.
	ErrSlugConflict = errors.New("area slug already in use")

	// ErrInvalidName is returned for empty or oversized names.
	ErrInvalidName = errors.New("invalid area name")

	// ErrInvalidSlug is returned for malformed slugs.
	ErrInvalidSlug = errors.New("invalid area slug")
)
