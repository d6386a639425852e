package clearing

import "errors"

var (
	// ErrInvalidRequirement indicates a negative or non-finite clearing
	// requirement.
	ErrInvalidRequirement = errors.New("requirement must be a non-negative finite number")

	// ErrHeterogeneousBook indicates a book mixing trading intervals or
	// reserve types, which invalidates the clearing. This is a misuse of
	// the book query upstream, not a data problem.
	ErrHeterogeneousBook = errors.New("book mixes trading intervals or reserve types")

	// ErrEmptyBook indicates there are no offers with available quantity
	// to clear against.
	ErrEmptyBook = errors.New("no offers available to clear against")
)
