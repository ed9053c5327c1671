package entity

import "errors"

var (
	// Gathering errors
	ErrGatheringNotFound     = errors.New("gathering not found")
	ErrGatheringNotAvailable = errors.New("gathering not available for booking")
	ErrNotCreator            = errors.New("only the creator may perform this operation")
	ErrGatheringDatePast     = errors.New("gathering date cannot be in the past")

	// Booking errors
	ErrAlreadyBooked     = errors.New("user already holds a slot")
	ErrNoSlotsAvailable  = errors.New("no slots available")
	ErrSlotTaken         = errors.New("slot number already taken")
	ErrInvalidSlotNumber = errors.New("invalid slot number")

	// Waitlist errors
	ErrAlreadyInWaitlist = errors.New("user already in waitlist")
	ErrAlreadyHasSlot    = errors.New("user already has a slot")
	ErrNotInWaitlist     = errors.New("user not in waitlist")
	ErrGatheringNotFull  = errors.New("gathering still has open slots")

	// Profile errors
	ErrProfileNotFound  = errors.New("profile not found")
	ErrTelegramIDExists = errors.New("telegram ID already linked")

	// General errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)
