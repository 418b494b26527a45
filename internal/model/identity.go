package model

import (
	"errors"
	"fmt"
)

// IdentityKind distinguishes private chats from group chats.
type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityGroup IdentityKind = "group"
)

// Identity is a chat identity: exactly one of a user id or a group id,
// carried as an explicit tagged pair so callers branch on Kind instead of
// checking which field happens to be set.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

func UserIdentity(id string) Identity {
	return Identity{Kind: IdentityUser, ID: id}
}

func GroupIdentity(id string) Identity {
	return Identity{Kind: IdentityGroup, ID: id}
}

func (i Identity) Validate() error {
	if i.Kind != IdentityUser && i.Kind != IdentityGroup {
		return fmt.Errorf("unknown identity kind %q", i.Kind)
	}
	if i.ID == "" {
		return errors.New("identity id is required")
	}
	return nil
}

// Key returns a stable string form used for map keys and log fields.
func (i Identity) Key() string {
	return string(i.Kind) + "-" + i.ID
}

// Binding associates a chat identity with one dormitory room. At most one
// binding exists per identity.
type Binding struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`
	Room     RoomKey  `json:"room"`
}

func (b Binding) Validate() error {
	if b.ID == "" {
		return errors.New("binding id is required")
	}
	if err := b.Identity.Validate(); err != nil {
		return err
	}
	return b.Room.Validate()
}

// ScheduleEntry is a daily notification time for one binding. At most one
// entry exists per binding.
type ScheduleEntry struct {
	ID        string `json:"id"`
	BindingID string `json:"binding_id"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
}

func (e ScheduleEntry) Validate() error {
	if e.BindingID == "" {
		return errors.New("binding id is required")
	}
	if e.Hour < 0 || e.Hour > 23 {
		return fmt.Errorf("hour %d out of range", e.Hour)
	}
	if e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("minute %d out of range", e.Minute)
	}
	return nil
}

func (e ScheduleEntry) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}
