package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrHasDependencies is returned when attempting to delete a resource that has dependent records.
var ErrHasDependencies = errors.New("resource has dependent records")

// ErrDuplicateReferralCode is returned when a partner is saved with a referral code
// already held by a different partner.
var ErrDuplicateReferralCode = errors.New("referral code already in use")
