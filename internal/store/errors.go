package store

import "errors"

// Custody errors. Every mutator either succeeds fully or fails with one of
// these (or a wrapped infrastructure error) and no state change. The API
// layer matches them with errors.Is and maps each to its own response.
var (
	// ErrOutOfWindow means the request arrived outside the daily request
	// window.
	ErrOutOfWindow = errors.New("requests are only accepted during the request window")

	// ErrRoleIneligible means the requester's role may not request equipment.
	ErrRoleIneligible = errors.New("this role may not request equipment")

	// ErrDuplicateActiveRequest means the requester already has a live
	// (pending, approved, or waiting) responsibility for the same equipment.
	ErrDuplicateActiveRequest = errors.New("an active request for this equipment already exists")

	// ErrInsufficientStock means the catalog has fewer available units than
	// requested.
	ErrInsufficientStock = errors.New("not enough units available")

	// ErrInvalidTransition means the requested status change is not legal
	// from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyReturned means the responsibility has already been returned.
	ErrAlreadyReturned = errors.New("responsibility already returned")

	// ErrNotHolder means the acting user does not hold the responsibility in
	// an approved state.
	ErrNotHolder = errors.New("only the current holder may transfer an approved responsibility")

	// ErrTargetNotWaitlisted means the transfer target has no waiting
	// responsibility for the equipment.
	ErrTargetNotWaitlisted = errors.New("transfer target is not on the waitlist for this equipment")

	// ErrNotFound means the equipment or responsibility does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEquipmentInUse means the equipment still has units reserved out and
	// cannot be deleted.
	ErrEquipmentInUse = errors.New("equipment has units on loan")
)
