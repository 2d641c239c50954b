package domain

import "fmt"

// Owned is any resource with a single owning user.
type Owned interface {
	OwnedBy() string
}

// Visible is an owned resource that may be hidden from non-owners.
type Visible interface {
	Owned
	Public() bool
}

// AssertOwner must be called only after the resource is known to exist, so a
// missing resource surfaces as ErrNotFound rather than ErrForbidden.
func AssertOwner(res Owned, actorID string) error {
	if actorID == "" || res.OwnedBy() != actorID {
		return fmt.Errorf("not the owner of this resource: %w", ErrForbidden)
	}
	return nil
}

func AssertVisible(res Visible, actorID string) error {
	if res.Public() {
		return nil
	}
	return AssertOwner(res, actorID)
}
