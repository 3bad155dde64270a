package members

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"
)

// SubscriptionTier is the paid FabLab membership level
type SubscriptionTier string

const (
	TierBasic SubscriptionTier = "basic" // Supervised equipment only
	TierMaker SubscriptionTier = "maker" // All standard equipment
	TierPro   SubscriptionTier = "pro"   // All equipment, extended booking window
)

// PermReserve is the single capability a FabLab session is scoped to.
const PermReserve = "fablab:reserve"

// Member is the FabLab member profile persisted by the FabLab session.
type Member struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	Email                 string           `json:"email,omitempty"`
	Tier                  SubscriptionTier `json:"tier"`
	SubscriptionExpiresAt time.Time        `json:"subscriptionExpiresAt"`
	Permissions           []string         `json:"permissions,omitempty"`
	AccessKeyHash         string           `json:"-"`
}

// HashAccessKey returns the lookup hash of a member access key. Keys are
// case-insensitive and surrounding whitespace is ignored.
func HashAccessKey(accessKey string) string {
	sum := sha256.Sum256([]byte(strings.ToUpper(strings.TrimSpace(accessKey))))
	return hex.EncodeToString(sum[:])
}

func (m *Member) PrincipalID() string {
	return m.ID
}

func (m *Member) HasPermission(permission string) bool {
	if m == nil {
		return false
	}
	return slices.Contains(m.Permissions, permission)
}

// SubscriptionActive reports whether the paid period covers now.
func (m *Member) SubscriptionActive(now time.Time) bool {
	return m != nil && m.SubscriptionExpiresAt.After(now)
}

// CanReserve is the FabLab capability: the reserve permission and a live subscription.
func (m *Member) CanReserve(now time.Time) bool {
	return m.HasPermission(PermReserve) && m.SubscriptionActive(now)
}

func (m *Member) Public() *Member {
	c := *m
	c.AccessKeyHash = ""
	c.Permissions = slices.Clone(m.Permissions)
	return &c
}
