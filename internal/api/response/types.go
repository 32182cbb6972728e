package response

import (
	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/combat"
	"github.com/mcoot/combattracker/internal/dice"
	"github.com/mcoot/combattracker/internal/model"
)

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

// CombatSummary is one row of the combat list
type CombatSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Round       int    `json:"round"`
	Combatants  int    `json:"combatants"`
	Parked      int    `json:"parked"`
	Active      string `json:"active,omitempty"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// CombatSummaryFromModel converts a restored combat into a list row
func CombatSummaryFromModel(c *model.SavedCombat) CombatSummary {
	s := CombatSummary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Round:       c.State.Round,
		Combatants:  len(c.State.Combatants),
		Parked:      len(c.State.ParkedGroups),
		UpdatedAt:   c.UpdatedAt,
	}
	if active := c.State.Active(); active != nil {
		s.Active = active.DisplayName()
	}
	return s
}

// CombatSummaries converts a list of combats
func CombatSummaries(combats []model.SavedCombat) []CombatSummary {
	out := make([]CombatSummary, len(combats))
	for i := range combats {
		out[i] = CombatSummaryFromModel(&combats[i])
	}
	return out
}

// CombatantsAdded is the response after adding or activating combatants
type CombatantsAdded struct {
	Combat *model.SavedCombat `json:"combat"`
	Added  []model.Combatant  `json:"added"`
}

// ConcentrationCheck asks for a concentration save
type ConcentrationCheck struct {
	Damage int `json:"damage"`
	DC     int `json:"dc"`
}

// HPChanged is the response after changing a combatant's HP
type HPChanged struct {
	Combat        *model.SavedCombat  `json:"combat"`
	Concentration *ConcentrationCheck `json:"concentration,omitempty"`
}

// HPChangedFromModel builds the HP response
func HPChangedFromModel(c *model.SavedCombat, change combat.HPChange) HPChanged {
	resp := HPChanged{Combat: c}
	if change.ConcentrationCheck {
		resp.Concentration = &ConcentrationCheck{Damage: change.Damage, DC: change.DC}
	}
	return resp
}

// GroupParked is the response after parking a group
type GroupParked struct {
	Combat *model.SavedCombat `json:"combat"`
	Group  model.ParkedGroup  `json:"group"`
}

// SyncStatus describes the configured sync provider
type SyncStatus struct {
	Enabled    bool   `json:"enabled"`
	Provider   string `json:"provider,omitempty"`
	Authorized bool   `json:"authorized"`
	LastSynced int64  `json:"lastSynced"`
}

// AuthorizationURL is where the user approves access to the provider
type AuthorizationURL struct {
	URL string `json:"url"`
}

// SyncResult reports the outcome of a sync
type SyncResult = cloudsync.Result

// Transfer reports a one-way upload or download
type Transfer struct {
	LastSynced int64 `json:"lastSynced"`
}

// Markdown is rendered HTML
type Markdown struct {
	HTML string `json:"html"`
}

// Roll is a dice roll result
type Roll struct {
	Expression string `json:"expression"`
	Results    []int  `json:"results"`
	Modifier   int    `json:"modifier"`
	Total      int    `json:"total"`
}

// RollFromModel converts a dice roll
func RollFromModel(r dice.Roll) Roll {
	return Roll{
		Expression: r.Expression.String(),
		Results:    r.Results,
		Modifier:   r.Expression.Modifier,
		Total:      r.Total,
	}
}
