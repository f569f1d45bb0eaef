package service

import (
	"errors"
	"fmt"

	"gradschool/internal/models"
)

var (
	ErrNotFound     = errors.New("defense request not found")
	ErrForbidden    = errors.New("actor is not allowed to perform this transition")
	ErrSyncNotReady = errors.New("defense request is not ready for record sync")

	ErrEmptyCommittee = errors.New("defense request has no committee to pay")
)

// SyncTransactionError wraps any failure inside the sync transaction. Nothing was
// written and the sync can be retried.
type SyncTransactionError struct {
	DefenseRequestID int64
	Err              error
}

func (e *SyncTransactionError) Error() string {
	return fmt.Sprintf("sync of defense request %d rolled back: %v", e.DefenseRequestID, e.Err)
}

func (e *SyncTransactionError) Unwrap() error {
	return e.Err
}

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID int64
	Role   models.UserRole
}

// System is the actor used by background jobs and the admin CLI
var System = Actor{Role: models.UserRoleAdmin}

func (a Actor) userID() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

func (a Actor) is(roles ...models.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
