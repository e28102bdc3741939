package authctx

import (
	"time"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/shared"
)

// ProfileSessionKey holds the profile snapshot used to bootstrap requests.
const ProfileSessionKey = "auth_profile"

// Snapshot is the profile cached in the session.
type Snapshot struct {
	Profile   apiclient.Profile `json:"profile"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// StoreProfile caches profile in the session and links the session to the user.
func StoreProfile(sess *shared.Session, profile *apiclient.Profile, now time.Time) error {
	if sess == nil || profile == nil {
		return nil
	}
	sess.SetUser(profile.User.ID)
	return sess.SetJSON(ProfileSessionKey, Snapshot{Profile: *profile, FetchedAt: now})
}

// LoadProfile returns the cached snapshot, if any.
func LoadProfile(sess *shared.Session) (*Snapshot, bool) {
	if sess == nil {
		return nil, false
	}
	var snap Snapshot
	found, err := sess.GetJSON(ProfileSessionKey, &snap)
	if err != nil || !found {
		return nil, false
	}
	return &snap, true
}

// ClearProfile drops the cached snapshot.
func ClearProfile(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.Delete(ProfileSessionKey)
	sess.SetUser("")
}
