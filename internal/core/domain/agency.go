package domain

// AdminOwnerID is the reserved owner of campaigns that are not assigned to
// any manager. Campaigns in the administrator pool are owned by it.
const AdminOwnerID = "__admin__"

// CampaignStatus is the delivery state of a campaign.
type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
)

// Valid reports whether s is a known status.
func (s CampaignStatus) Valid() bool {
	return s == CampaignActive || s == CampaignPaused
}

// CampaignHealth summarises how a campaign is pacing.
type CampaignHealth string

const (
	HealthOK       CampaignHealth = "ok"
	HealthWarning  CampaignHealth = "warning"
	HealthCritical CampaignHealth = "critical"
)

// Manager is a human operator who can own campaigns.
type Manager struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Campaign represents an advertising campaign nested under an account.
// OwnerID is either a manager id or AdminOwnerID, never empty.
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      CampaignStatus `json:"status"`
	Health      CampaignHealth `json:"health"`
	DailyBudget float64        `json:"dailyBudget"`
	SpentToday  float64        `json:"spentToday"`
	OwnerID     string         `json:"ownerId"`
	Keywords    []string       `json:"keywords"`
}

// Account is a container of campaigns. The campaign list is the only
// reachability path for a campaign.
type Account struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Campaigns []Campaign `json:"campaigns"`
}

// FlatCampaign is a campaign annotated with the account it lives under. It
// is produced by the flattened selectors and never persisted.
type FlatCampaign struct {
	Campaign
	AccountID string `json:"accountId"`
}

// AgencyState is the whole persisted document. A value reachable from a
// snapshot is never mutated; every change produces a new tree.
type AgencyState struct {
	Managers []Manager `json:"managers"`
	Accounts []Account `json:"accounts"`
}

// ManagerStats holds per-manager ownership counts.
type ManagerStats struct {
	ManagerID     string `json:"managerId"`
	AccountCount  int    `json:"accountCount"`
	CampaignCount int    `json:"campaignCount"`
}

// DefaultState returns the built-in document used before hydration and
// whenever the persisted document is missing or malformed.
func DefaultState() *AgencyState {
	return &AgencyState{
		Managers: []Manager{},
		Accounts: []Account{},
	}
}
