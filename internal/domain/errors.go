package domain

import "errors"

var (
	// ErrActivityNotFound indicates the activity definition could not be loaded.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrInvalidActivity is returned for definitions that break the item/choice invariants.
	ErrInvalidActivity = errors.New("invalid activity definition")
	// ErrCatalogNotFound indicates no catalog exists for a category.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrDuplicateEntry is returned when a catalog repeats an id or index.
	ErrDuplicateEntry = errors.New("duplicate catalog entry")
	// ErrPlaythroughNotFound is returned when acting on an unknown or ended playthrough.
	ErrPlaythroughNotFound = errors.New("playthrough not found")
	// ErrChoiceNotFound indicates a submitted choice id is not part of the current item.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrWrongItemKind is returned when a choice is sent to a binary item or the reverse.
	ErrWrongItemKind = errors.New("response does not match item kind")
	ErrNoSelection   = errors.New("no selection recorded for current item")
	ErrNotEvaluated  = errors.New("current item has not been answered")
	ErrNotCompleted  = errors.New("activity not completed")
	ErrRunnerClosed  = errors.New("activity runner closed")
)
