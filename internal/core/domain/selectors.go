package domain

// Selectors scan the nested tree on every call. The document is small
// enough that no secondary index is kept.

// ListManagers returns the managers in display order.
func (s *AgencyState) ListManagers() []Manager {
	return s.Managers
}

// ListAccounts returns the accounts in display order.
func (s *AgencyState) ListAccounts() []Account {
	return s.Accounts
}

// ManagerByID returns the manager with the given id.
func (s *AgencyState) ManagerByID(id string) (Manager, bool) {
	if idx := s.managerIndex(id); idx >= 0 {
		return s.Managers[idx], true
	}
	return Manager{}, false
}

// AccountByID returns the account with the given id.
func (s *AgencyState) AccountByID(id string) (Account, bool) {
	if idx := s.accountIndex(id); idx >= 0 {
		return s.Accounts[idx], true
	}
	return Account{}, false
}

// CampaignByID looks a campaign up across all accounts.
func (s *AgencyState) CampaignByID(id string) (FlatCampaign, bool) {
	for _, acc := range s.Accounts {
		for _, c := range acc.Campaigns {
			if c.ID == id {
				return FlatCampaign{Campaign: c, AccountID: acc.ID}, true
			}
		}
	}
	return FlatCampaign{}, false
}

// CampaignsByAccount returns the campaigns of one account, or nil when the
// account does not exist.
func (s *AgencyState) CampaignsByAccount(accountID string) []Campaign {
	if idx := s.accountIndex(accountID); idx >= 0 {
		return s.Accounts[idx].Campaigns
	}
	return nil
}

// AllCampaigns flattens every account's campaigns, injecting AccountID.
func (s *AgencyState) AllCampaigns() []FlatCampaign {
	return s.filterCampaigns(func(Campaign) bool { return true })
}

// UnassignedCampaigns returns campaigns in the administrator pool.
func (s *AgencyState) UnassignedCampaigns() []FlatCampaign {
	return s.CampaignsByOwner(AdminOwnerID)
}

// CampaignsByOwner returns campaigns owned by ownerID.
func (s *AgencyState) CampaignsByOwner(ownerID string) []FlatCampaign {
	return s.filterCampaigns(func(c Campaign) bool { return c.OwnerID == ownerID })
}

// AccountCountForManager counts the distinct accounts in which the manager
// owns at least one campaign.
func (s *AgencyState) AccountCountForManager(managerID string) int {
	n := 0
	for _, acc := range s.Accounts {
		for _, c := range acc.Campaigns {
			if c.OwnerID == managerID {
				n++
				break
			}
		}
	}
	return n
}

// CampaignCountForManager counts campaigns owned by the manager.
func (s *AgencyState) CampaignCountForManager(managerID string) int {
	n := 0
	for _, acc := range s.Accounts {
		for _, c := range acc.Campaigns {
			if c.OwnerID == managerID {
				n++
			}
		}
	}
	return n
}

// ManagerStats returns ownership counts for every manager, in manager order.
func (s *AgencyState) ManagerStats() []ManagerStats {
	stats := make([]ManagerStats, 0, len(s.Managers))
	for _, m := range s.Managers {
		stats = append(stats, ManagerStats{
			ManagerID:     m.ID,
			AccountCount:  s.AccountCountForManager(m.ID),
			CampaignCount: s.CampaignCountForManager(m.ID),
		})
	}
	return stats
}

// IsOwner reports whether id is a valid campaign owner: a current manager
// or the administrator sentinel.
func (s *AgencyState) IsOwner(id string) bool {
	return id == AdminOwnerID || s.managerIndex(id) >= 0
}

func (s *AgencyState) filterCampaigns(keep func(Campaign) bool) []FlatCampaign {
	out := make([]FlatCampaign, 0)
	for _, acc := range s.Accounts {
		for _, c := range acc.Campaigns {
			if keep(c) {
				out = append(out, FlatCampaign{Campaign: c, AccountID: acc.ID})
			}
		}
	}
	return out
}
