package domain

import "fmt"

// DemoState builds the fixture document used to seed a fresh workspace:
// two managers and one account whose campaigns are split between them and
// the administrator pool.
func DemoState() *AgencyState {
	managers := []Manager{
		{ID: "mgr-1", Name: "Alex Morgan"},
		{ID: "mgr-2", Name: "Sam Rivera"},
	}
	owners := []string{managers[0].ID, managers[0].ID, managers[1].ID, AdminOwnerID, AdminOwnerID}
	health := []CampaignHealth{HealthOK, HealthWarning, HealthOK, HealthCritical, HealthOK}
	keywords := [][]string{
		{"running shoes", "trail shoes"},
		{"winter jackets"},
		{"yoga mats", "fitness"},
		{"protein bars"},
		{},
	}

	campaigns := make([]Campaign, 0, len(owners))
	for i, owner := range owners {
		status := CampaignActive
		if i == 3 {
			status = CampaignPaused
		}
		campaigns = append(campaigns, Campaign{
			ID:          fmt.Sprintf("cmp-%d", i+1),
			Name:        fmt.Sprintf("Campaign %d", i+1),
			Status:      status,
			Health:      health[i],
			DailyBudget: float64(100 * (i + 1)),
			SpentToday:  float64(35 * i),
			OwnerID:     owner,
			Keywords:    keywords[i],
		})
	}
	return &AgencyState{
		Managers: managers,
		Accounts: []Account{{ID: "acc-1", Name: "Main account", Campaigns: campaigns}},
	}
}
