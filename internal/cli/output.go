package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/markdown"
	"github.com/mcoot/combattracker/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	style  string
	width  int
	w      io.Writer
	title  cases.Caser
}

// NewOutput creates an Output writing to the command's stdout
func NewOutput(cmd *cobra.Command) *Output {
	return &Output{
		format: cfg.Output,
		style:  cfg.Style,
		width:  cfg.Width,
		w:      cmd.OutOrStdout(),
		title:  cases.Title(language.English),
	}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintNotes renders markdown notes for the terminal
func (o *Output) PrintNotes(notes string) error {
	if o.format == "json" {
		o.printJSON(map[string]string{"notes": notes})
		return nil
	}
	out, err := markdown.Terminal(notes, o.style, o.width)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.w, out)
	return nil
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case *model.SavedCombat:
		o.printCombat(v)
	case []response.CombatSummary:
		o.printCombatList(v)
	case response.CombatantsAdded:
		o.printCombat(v.Combat)
		names := make([]string, len(v.Added))
		for i := range v.Added {
			names[i] = v.Added[i].DisplayName()
		}
		fmt.Fprintf(o.w, "\nAdded: %s\n", strings.Join(names, ", "))
	case response.HPChanged:
		o.printCombat(v.Combat)
		if v.Concentration != nil {
			fmt.Fprintf(o.w, "\nConcentration check: DC %d (took %d damage)\n", v.Concentration.DC, v.Concentration.Damage)
		}
	case response.GroupParked:
		o.printCombat(v.Combat)
		fmt.Fprintf(o.w, "\nParked group: %s\n", v.Group.ID)
	case *model.SavedPlayer:
		o.printPlayers([]model.SavedPlayer{*v})
		o.printTemplateNotes(v.Notes)
	case []model.SavedPlayer:
		o.printPlayers(v)
	case *model.SavedMonster:
		o.printMonsters([]model.SavedMonster{*v})
		o.printTemplateNotes(v.Notes)
	case []model.SavedMonster:
		o.printMonsters(v)
	case response.SyncStatus:
		o.printSyncStatus(v)
	case response.SyncResult:
		fmt.Fprintf(o.w, "Sync: %s\n", v.Direction)
		fmt.Fprintf(o.w, "Last synced: %s\n", formatMillis(v.LastSynced))
	case response.Transfer:
		fmt.Fprintf(o.w, "Last synced: %s\n", formatMillis(v.LastSynced))
	case response.AuthorizationURL:
		fmt.Fprintln(o.w, "Open this URL to authorize sync, then run 'combat sync authorize <code>':")
		fmt.Fprintln(o.w, v.URL)
	case response.Roll:
		o.printRoll(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printCombat(c *model.SavedCombat) {
	if c == nil {
		return
	}
	fmt.Fprintf(o.w, "Combat: %s (%s)\n", c.Name, c.ID)
	if c.Description != "" {
		fmt.Fprintf(o.w, "%s\n", c.Description)
	}
	fmt.Fprintf(o.w, "Round: %d\n", c.State.Round)

	if len(c.State.Combatants) == 0 {
		fmt.Fprintln(o.w, "\nNo combatants")
	} else {
		fmt.Fprintln(o.w)
		tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tINIT\tNAME\tHP\tAC\tSTATUS\tID")
		for i := range c.State.Combatants {
			cb := &c.State.Combatants[i]
			marker := ""
			if i == c.State.CurrentTurn {
				marker = ">"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
				marker, cb.Initiative, cb.DisplayName(), formatHP(cb), cb.ArmorClass(), o.status(cb), cb.ID)
		}
		_ = tw.Flush()
	}

	if len(c.State.ParkedGroups) > 0 {
		fmt.Fprintln(o.w, "\nParked:")
		for _, g := range c.State.ParkedGroups {
			fmt.Fprintf(o.w, "  - %s x%d (%s)\n", parkedName(g), g.Quantity, g.ID)
		}
	}
}

func parkedName(g model.ParkedGroup) string {
	if g.Name != "" {
		return g.Name
	}
	if g.TemplateOrigin.IsTemplate() {
		return fmt.Sprintf("%s %s", g.TemplateOrigin.OriginType, g.TemplateOrigin.OriginID)
	}
	return "unnamed"
}

func formatHP(c *model.Combatant) string {
	hp := fmt.Sprintf("%d/%d", c.HP, c.MaxHP)
	if c.TempHP > 0 {
		hp += fmt.Sprintf(" (+%d)", c.TempHP)
	}
	return hp
}

// status lists conditions, concentration and death saves
func (o *Output) status(c *model.Combatant) string {
	var parts []string
	for _, cond := range c.Conditions {
		parts = append(parts, o.title.String(cond))
	}
	if c.Concentrating {
		parts = append(parts, "Concentrating")
	}
	if c.IsDown() {
		parts = append(parts, fmt.Sprintf("Down S%d/F%d", c.DeathSaves.Successes, c.DeathSaves.Failures))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func (o *Output) printCombatList(list []response.CombatSummary) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No combats")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROUND\tCOMBATANTS\tPARKED\tACTIVE\tUPDATED")
	for _, c := range list {
		active := c.Active
		if active == "" {
			active = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			c.ID, c.Name, c.Round, c.Combatants, c.Parked, active, formatMillis(c.UpdatedAt))
	}
	_ = tw.Flush()
}

func (o *Output) printPlayers(players []model.SavedPlayer) {
	if len(players) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHP\tAC\tINIT")
	for _, p := range players {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%+d\n", p.ID, p.Name, p.MaxHP, p.AC, p.InitiativeBonus)
	}
	_ = tw.Flush()
}

func (o *Output) printMonsters(monsters []model.SavedMonster) {
	if len(monsters) == 0 {
		fmt.Fprintln(o.w, "No monsters")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHP\tFORMULA\tAC\tINIT\tCR")
	for _, m := range monsters {
		formula, cr := m.HPFormula, m.ChallengeRating
		if formula == "" {
			formula = "-"
		}
		if cr == "" {
			cr = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%+d\t%s\n", m.ID, m.Name, m.MaxHP, formula, m.AC, m.InitiativeBonus, cr)
	}
	_ = tw.Flush()
}

func (o *Output) printTemplateNotes(notes string) {
	if strings.TrimSpace(notes) == "" {
		return
	}
	fmt.Fprintln(o.w)
	if err := o.PrintNotes(notes); err != nil {
		fmt.Fprintln(o.w, notes)
	}
}

func (o *Output) printSyncStatus(s response.SyncStatus) {
	if !s.Enabled {
		fmt.Fprintln(o.w, "Sync: disabled")
		return
	}
	authorized := "no"
	if s.Authorized {
		authorized = "yes"
	}
	fmt.Fprintf(o.w, "Sync: %s\n", s.Provider)
	fmt.Fprintf(o.w, "Authorized: %s\n", authorized)
	fmt.Fprintf(o.w, "Last synced: %s\n", formatMillis(s.LastSynced))
}

func (o *Output) printRoll(r response.Roll) {
	rolls := make([]string, len(r.Results))
	for i, v := range r.Results {
		rolls[i] = fmt.Sprint(v)
	}
	detail := "[" + strings.Join(rolls, ", ") + "]"
	if r.Modifier != 0 {
		detail += fmt.Sprintf(" %+d", r.Modifier)
	}
	fmt.Fprintf(o.w, "%s: %s = %d\n", r.Expression, detail, r.Total)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return clock.FromMillis(ms).Local().Format("2006-01-02 15:04:05")
}
