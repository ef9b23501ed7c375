package port

import (
	"context"

	"agency-hub/internal/core/domain"
)

// AgencyUseCase is the observable domain store consumed by the view layer.
// Actions never return errors for misuse: not-found and quota conditions
// yield nil or false, validation failures a RenameResult.
type AgencyUseCase interface {
	// Subscribe registers a listener called synchronously after every
	// state replacement. The returned function must be called to release
	// it.
	Subscribe(listener func()) (unsubscribe func())
	// GetSnapshot returns the current document. The pointer is unchanged
	// between notifications and must be treated as read-only.
	GetSnapshot() *domain.AgencyState

	AssignCampaign(ctx context.Context, campaignID, managerID string) bool
	RemoveCampaignFromManager(ctx context.Context, campaignID string)
	AssignAccount(ctx context.Context, accountID, managerID string) bool
	RemoveFromManager(ctx context.Context, accountID string)
	DeleteManager(ctx context.Context, managerID string)
	AddManager(ctx context.Context, name string) *domain.Manager
	RenameManager(ctx context.Context, managerID, name string) RenameResult
	AddAiAccount(ctx context.Context) *domain.Account
	AddOwnAccount(ctx context.Context) *domain.Account
	AddCampaign(ctx context.Context, accountID, name string) *domain.Campaign
	DeleteCampaign(ctx context.Context, campaignID string) bool
	SetCampaignStatus(ctx context.Context, campaignID string, status domain.CampaignStatus) bool
}

// RenameResult is the outcome of RenameManager. Reason is empty when OK.
type RenameResult struct {
	OK     bool                `json:"ok"`
	Reason domain.RenameReason `json:"reason,omitempty"`
}
