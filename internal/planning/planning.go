// Package planning manages the lifecycle of trade plans and the campaigns
// that group them.
package planning

import "trade-journal/internal/models"

// planTransitions lists the statuses each plan status may move to. A closed
// plan may be reopened.
var planTransitions = map[models.PlanStatus][]models.PlanStatus{
	models.PlanIdea:     {models.PlanWatching, models.PlanActive, models.PlanClosed},
	models.PlanWatching: {models.PlanIdea, models.PlanActive, models.PlanClosed},
	models.PlanActive:   {models.PlanWatching, models.PlanClosed},
	models.PlanClosed:   {models.PlanIdea, models.PlanWatching, models.PlanActive},
}

var campaignTransitions = map[models.CampaignStatus][]models.CampaignStatus{
	models.CampaignPlanning: {models.CampaignActive, models.CampaignClosed},
	models.CampaignActive:   {models.CampaignPlanning, models.CampaignClosed},
	models.CampaignClosed:   {models.CampaignActive},
}

// CanTransitionPlan reports whether a plan may move from one status to
// another. Staying in the same status is not a transition.
func CanTransitionPlan(from, to models.PlanStatus) bool {
	for _, s := range planTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionCampaign reports whether a campaign may move from one status
// to another.
func CanTransitionCampaign(from, to models.CampaignStatus) bool {
	for _, s := range campaignTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidPlanStatus reports whether s is a known plan status.
func ValidPlanStatus(s models.PlanStatus) bool {
	_, ok := planTransitions[s]
	return ok
}

// ValidCampaignStatus reports whether s is a known campaign status.
func ValidCampaignStatus(s models.CampaignStatus) bool {
	_, ok := campaignTransitions[s]
	return ok
}
