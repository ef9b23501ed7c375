package domain

import "strings"

// The reducers below are pure: they never modify their input and return a
// new tree sharing every untouched branch with it. When nothing changes the
// input pointer itself is returned so callers can skip persisting.

// IDFunc produces fresh entity identifiers.
type IDFunc func() string

// AssignCampaign sets the owner of one campaign.
func AssignCampaign(s *AgencyState, campaignID, ownerID string) *AgencyState {
	return mapCampaigns(s, func(_ string, c Campaign) (Campaign, bool) {
		if c.ID != campaignID || c.OwnerID == ownerID {
			return c, false
		}
		c.OwnerID = ownerID
		return c, true
	})
}

// RemoveCampaignFromManager returns one campaign to the administrator pool.
func RemoveCampaignFromManager(s *AgencyState, campaignID string) *AgencyState {
	return AssignCampaign(s, campaignID, AdminOwnerID)
}

// AssignAccount sets the owner of every campaign under one account.
func AssignAccount(s *AgencyState, accountID, ownerID string) *AgencyState {
	return mapCampaigns(s, func(accID string, c Campaign) (Campaign, bool) {
		if accID != accountID || c.OwnerID == ownerID {
			return c, false
		}
		c.OwnerID = ownerID
		return c, true
	})
}

// RemoveFromManager returns every campaign under one account to the
// administrator pool.
func RemoveFromManager(s *AgencyState, accountID string) *AgencyState {
	return AssignAccount(s, accountID, AdminOwnerID)
}

// DeleteManager removes a manager and hands its campaigns back to the
// administrator pool in the same tree.
func DeleteManager(s *AgencyState, managerID string) *AgencyState {
	idx := s.managerIndex(managerID)
	if idx < 0 {
		return s
	}
	managers := make([]Manager, 0, len(s.Managers)-1)
	managers = append(managers, s.Managers[:idx]...)
	managers = append(managers, s.Managers[idx+1:]...)

	next := mapCampaigns(s, func(_ string, c Campaign) (Campaign, bool) {
		if c.OwnerID != managerID {
			return c, false
		}
		c.OwnerID = AdminOwnerID
		return c, true
	})
	return &AgencyState{Managers: managers, Accounts: next.Accounts}
}

// AddManager prepends a manager. It returns ok=false when the trimmed name
// is empty or already taken, ignoring case.
func AddManager(s *AgencyState, name string, newID IDFunc) (*AgencyState, Manager, bool) {
	name = strings.TrimSpace(name)
	if name == "" || s.managerNameTaken(name, "") {
		return s, Manager{}, false
	}
	m := Manager{ID: newID(), Name: name}
	managers := make([]Manager, 0, len(s.Managers)+1)
	managers = append(managers, m)
	managers = append(managers, s.Managers...)
	return &AgencyState{Managers: managers, Accounts: s.Accounts}, m, true
}

// RenameReason explains why a rename was rejected.
type RenameReason string

const (
	RenameEmpty     RenameReason = "empty"
	RenameNotFound  RenameReason = "not_found"
	RenameDuplicate RenameReason = "duplicate"
)

// RenameManager changes a manager's name. Renaming a manager to its own
// name in a different case is allowed.
func RenameManager(s *AgencyState, managerID, name string) (*AgencyState, RenameReason) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s, RenameEmpty
	}
	idx := s.managerIndex(managerID)
	if idx < 0 {
		return s, RenameNotFound
	}
	if s.managerNameTaken(name, managerID) {
		return s, RenameDuplicate
	}
	if s.Managers[idx].Name == name {
		return s, ""
	}
	managers := make([]Manager, len(s.Managers))
	copy(managers, s.Managers)
	managers[idx].Name = name
	return &AgencyState{Managers: managers, Accounts: s.Accounts}, ""
}

// AddAccount appends an empty account unless the state already holds limit
// accounts. A negative limit disables the quota.
func AddAccount(s *AgencyState, name string, limit int, newID IDFunc) (*AgencyState, Account, bool) {
	if limit >= 0 && len(s.Accounts) >= limit {
		return s, Account{}, false
	}
	a := Account{ID: newID(), Name: name, Campaigns: []Campaign{}}
	accounts := make([]Account, 0, len(s.Accounts)+1)
	accounts = append(accounts, s.Accounts...)
	accounts = append(accounts, a)
	return &AgencyState{Managers: s.Managers, Accounts: accounts}, a, true
}

// DefaultCampaignName is used when a campaign is created without a name.
const DefaultCampaignName = "New campaign"

// AddCampaign prepends a fresh campaign to an account. The campaign starts
// active, healthy, unspent and in the administrator pool.
func AddCampaign(s *AgencyState, accountID, name string, newID IDFunc) (*AgencyState, Campaign, bool) {
	idx := s.accountIndex(accountID)
	if idx < 0 {
		return s, Campaign{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCampaignName
	}
	c := Campaign{
		ID:       newID(),
		Name:     name,
		Status:   CampaignActive,
		Health:   HealthOK,
		OwnerID:  AdminOwnerID,
		Keywords: []string{},
	}
	acc := s.Accounts[idx]
	campaigns := make([]Campaign, 0, len(acc.Campaigns)+1)
	campaigns = append(campaigns, c)
	campaigns = append(campaigns, acc.Campaigns...)
	acc.Campaigns = campaigns

	accounts := make([]Account, len(s.Accounts))
	copy(accounts, s.Accounts)
	accounts[idx] = acc
	return &AgencyState{Managers: s.Managers, Accounts: accounts}, c, true
}

// DeleteCampaign removes a campaign from whichever account holds it.
func DeleteCampaign(s *AgencyState, campaignID string) *AgencyState {
	for i, acc := range s.Accounts {
		for j, c := range acc.Campaigns {
			if c.ID != campaignID {
				continue
			}
			campaigns := make([]Campaign, 0, len(acc.Campaigns)-1)
			campaigns = append(campaigns, acc.Campaigns[:j]...)
			campaigns = append(campaigns, acc.Campaigns[j+1:]...)
			acc.Campaigns = campaigns

			accounts := make([]Account, len(s.Accounts))
			copy(accounts, s.Accounts)
			accounts[i] = acc
			return &AgencyState{Managers: s.Managers, Accounts: accounts}
		}
	}
	return s
}

// SetCampaignStatus pauses or resumes a campaign. Unknown statuses are
// ignored.
func SetCampaignStatus(s *AgencyState, campaignID string, status CampaignStatus) *AgencyState {
	if !status.Valid() {
		return s
	}
	return mapCampaigns(s, func(_ string, c Campaign) (Campaign, bool) {
		if c.ID != campaignID || c.Status == status {
			return c, false
		}
		c.Status = status
		return c, true
	})
}

// mapCampaigns rewrites campaigns through fn, copying only the accounts and
// campaign slices that actually change.
func mapCampaigns(s *AgencyState, fn func(accountID string, c Campaign) (Campaign, bool)) *AgencyState {
	var accounts []Account
	for i, acc := range s.Accounts {
		var campaigns []Campaign
		for j, c := range acc.Campaigns {
			updated, changed := fn(acc.ID, c)
			if !changed {
				continue
			}
			if campaigns == nil {
				campaigns = make([]Campaign, len(acc.Campaigns))
				copy(campaigns, acc.Campaigns)
			}
			campaigns[j] = updated
		}
		if campaigns == nil {
			continue
		}
		if accounts == nil {
			accounts = make([]Account, len(s.Accounts))
			copy(accounts, s.Accounts)
		}
		acc.Campaigns = campaigns
		accounts[i] = acc
	}
	if accounts == nil {
		return s
	}
	return &AgencyState{Managers: s.Managers, Accounts: accounts}
}

func (s *AgencyState) managerIndex(id string) int {
	for i, m := range s.Managers {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *AgencyState) accountIndex(id string) int {
	for i, a := range s.Accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *AgencyState) managerNameTaken(name, exceptID string) bool {
	for _, m := range s.Managers {
		if m.ID != exceptID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}
