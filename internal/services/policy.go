package services

// PrivilegePolicy decides once per message whether the sender bypasses the
// numeric-only rule. Privileged senders may chat freely in counted topics
// and may request leaderboards.
type PrivilegePolicy struct {
	admins map[int64]struct{}
}

func NewPrivilegePolicy(adminIDs []int64) *PrivilegePolicy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &PrivilegePolicy{admins: admins}
}

func (p *PrivilegePolicy) IsPrivileged(userID int64) bool {
	if p == nil {
		return false
	}
	_, ok := p.admins[userID]
	return ok
}
