package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/model"
)

func newCombatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "combat",
		Aliases: []string{"c"},
		Short:   "Encounter commands",
	}

	cmd.AddCommand(newCombatListCmd())
	cmd.AddCommand(newCombatCreateCmd())
	cmd.AddCommand(newCombatGetCmd())
	cmd.AddCommand(newCombatRenameCmd())
	cmd.AddCommand(newCombatDeleteCmd())
	cmd.AddCommand(newCombatAddCmd())
	cmd.AddCommand(newCombatRemoveCmd())
	cmd.AddCommand(newCombatHPDeltaCmd("damage", "Damage a combatant", -1))
	cmd.AddCommand(newCombatHPDeltaCmd("heal", "Heal a combatant", 1))
	cmd.AddCommand(newCombatSetHPCmd())
	cmd.AddCommand(newCombatValueCmd("temp-hp", "Set temporary HP", "temp-hp"))
	cmd.AddCommand(newCombatValueCmd("max-hp", "Set maximum HP", "max-hp"))
	cmd.AddCommand(newCombatValueCmd("initiative", "Set initiative and re-sort", "initiative"))
	cmd.AddCommand(newCombatConditionCmd())
	cmd.AddCommand(newCombatDeathSavesCmd())
	cmd.AddCommand(newCombatConcentrateCmd())
	cmd.AddCommand(newCombatTurnCmd("next", "Advance to the next turn"))
	cmd.AddCommand(newCombatTurnCmd("prev", "Go back one turn"))
	cmd.AddCommand(newCombatTurnCmd("reset", "Restart at round 1 with the first combatant"))
	cmd.AddCommand(newCombatParkCmd())
	cmd.AddCommand(newCombatActivateCmd())
	cmd.AddCommand(newCombatDiscardCmd())
	cmd.AddCommand(newCombatNotesCmd())

	return cmd
}

func newCombatListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List combats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.CombatSummary

			if err := client.Get(cmd.Context(), apiPath("combats"), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newCombatCreateCmd() *cobra.Command {
	var req request.CombatRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty combat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			if err := client.Post(cmd.Context(), apiPath("combats"), req, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Combat name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Short description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newCombatGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <combat-id>",
		Short: "Show a combat's turn order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			if err := client.Get(cmd.Context(), apiPath("combats", args[0]), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatRenameCmd() *cobra.Command {
	var req request.CombatRequest

	cmd := &cobra.Command{
		Use:   "rename <combat-id>",
		Short: "Change a combat's name and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			if err := client.Put(cmd.Context(), apiPath("combats", args[0]), req, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Combat name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Short description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newCombatDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <combat-id>",
		Short: "Delete a combat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), apiPath("combats", args[0]), nil); err != nil {
				return err
			}

			NewOutput(cmd).PrintMessage(fmt.Sprintf("Deleted combat %s", args[0]))
			return nil
		},
	}
}

// draftFlags binds the flags that describe a new combatant or parked group
type draftFlags struct {
	draft      model.NewCombatant
	ac         int
	identifier string
	playerID   string
	monsterID  string
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.draft.Name, "name", "", "Name (defaults to the template's)")
	flags.IntVarP(&f.draft.Quantity, "quantity", "n", 1, "How many to add")
	flags.IntVar(&f.draft.Initiative, "init", 0, "Initiative")
	flags.IntVar(&f.draft.InitiativeBonus, "init-bonus", 0, "Initiative bonus")
	flags.BoolVar(&f.draft.RollInitiative, "roll-init", false, "Roll d20 plus the bonus for initiative")
	flags.IntVar(&f.draft.MaxHP, "max-hp", 0, "Maximum HP")
	flags.IntVar(&f.draft.HP, "hp", 0, "Current HP (defaults to max)")
	flags.StringVar(&f.draft.HPFormula, "hp-formula", "", "HP dice formula, e.g. 2d6+2")
	flags.BoolVar(&f.draft.RollHP, "roll-hp", false, "Roll HP from the formula for each member")
	flags.IntVar(&f.ac, "ac", 0, "Armor class")
	flags.StringVar(&f.draft.Notes, "notes", "", "Markdown notes")
	flags.BoolVar(&f.draft.IsPlayer, "is-player", false, "Mark as a player character")
	flags.StringVar(&f.identifier, "identifier", "", "Group labels: letter or number")
	flags.StringVar(&f.playerID, "player", "", "Player template ID")
	flags.StringVar(&f.monsterID, "monster", "", "Monster template ID")
	cmd.MarkFlagsMutuallyExclusive("player", "monster")
}

func (f *draftFlags) build(cmd *cobra.Command) model.NewCombatant {
	draft := f.draft
	if cmd.Flags().Changed("ac") {
		draft.AC = model.IntPtr(f.ac)
	}
	draft.IdentifierType = model.IdentifierType(f.identifier)
	switch {
	case f.playerID != "":
		draft.TemplateOrigin = model.TemplateOrigin{OriginType: model.OriginPlayer, OriginID: f.playerID}
	case f.monsterID != "":
		draft.TemplateOrigin = model.TemplateOrigin{OriginType: model.OriginMonster, OriginID: f.monsterID}
	default:
		draft.TemplateOrigin = model.NoTemplate()
	}
	return draft
}

func newCombatAddCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "add <combat-id>",
		Short: "Add combatants to the turn order",
		Long: `Add one or more combatants. Use --player or --monster to build them
from a library template; other flags override the template's values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.CombatantsAdded

			path := apiPath("combats", args[0], "combatants")
			if err := client.Post(cmd.Context(), path, flags.build(cmd), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
	flags.bind(cmd)

	return cmd
}

func newCombatRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <combat-id> <combatant-id>",
		Short: "Remove a combatant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			path := apiPath("combats", args[0], "combatants", args[1])
			if err := client.Delete(cmd.Context(), path, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatHPDeltaCmd(use, short string, sign int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <combat-id> <combatant-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := intArg(args[2], "amount")
			if err != nil {
				return err
			}
			if amount < 0 {
				return fmt.Errorf("amount must not be negative")
			}
			delta := sign * amount

			var result response.HPChanged
			path := apiPath("combats", args[0], "combatants", args[1], "hp")
			if err := client.Post(cmd.Context(), path, request.HPRequest{Delta: &delta}, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newCombatSetHPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hp <combat-id> <combatant-id> <hp>",
		Short: "Set current HP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hp, err := intArg(args[2], "hp")
			if err != nil {
				return err
			}

			var result response.HPChanged
			path := apiPath("combats", args[0], "combatants", args[1], "hp")
			if err := client.Post(cmd.Context(), path, request.HPRequest{HP: &hp}, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

// newCombatValueCmd builds a command that PUTs a single number to a combatant resource
func newCombatValueCmd(use, short, resource string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <combat-id> <combatant-id> <value>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := intArg(args[2], "value")
			if err != nil {
				return err
			}

			var result model.SavedCombat
			path := apiPath("combats", args[0], "combatants", args[1], resource)
			if err := client.Put(cmd.Context(), path, request.ValueRequest{Value: &value}, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatConditionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "condition <combat-id> <combatant-id> <condition>",
		Short: "Toggle a condition on a combatant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			path := apiPath("combats", args[0], "combatants", args[1], "conditions")
			if err := client.Post(cmd.Context(), path, request.ConditionRequest{Condition: args[2]}, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatDeathSavesCmd() *cobra.Command {
	var req request.DeathSavesRequest

	cmd := &cobra.Command{
		Use:   "death-saves <combat-id> <combatant-id>",
		Short: "Set death save successes and failures",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			path := apiPath("combats", args[0], "combatants", args[1], "death-saves")
			if err := client.Put(cmd.Context(), path, req, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Successes, "successes", 0, "Successes (0-3)")
	cmd.Flags().IntVar(&req.Failures, "failures", 0, "Failures (0-3)")

	return cmd
}

func newCombatConcentrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "concentrate <combat-id> <combatant-id>",
		Short: "Toggle concentration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			path := apiPath("combats", args[0], "combatants", args[1], "concentration")
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatTurnCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <combat-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			if err := client.Post(cmd.Context(), apiPath("combats", args[0], action), nil, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatParkCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "park <combat-id>",
		Short: "Hold a group back until it joins the fight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GroupParked

			path := apiPath("combats", args[0], "parked")
			if err := client.Post(cmd.Context(), path, flags.build(cmd), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
	flags.bind(cmd)

	return cmd
}

func newCombatActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <combat-id> <group-id>",
		Short: "Move a parked group into the turn order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.CombatantsAdded

			path := apiPath("combats", args[0], "parked", args[1], "activate")
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newCombatDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <combat-id> <group-id>",
		Short: "Drop a parked group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			path := apiPath("combats", args[0], "parked", args[1])
			if err := client.Delete(cmd.Context(), path, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(&result)
			return nil
		},
	}
}

func newCombatNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <combat-id> <combatant-id>",
		Short: "Render a combatant's notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.SavedCombat

			if err := client.Get(cmd.Context(), apiPath("combats", args[0]), &result); err != nil {
				return err
			}
			i := result.State.IndexOf(args[1])
			if i < 0 {
				return fmt.Errorf("combatant %s not found", args[1])
			}

			out := NewOutput(cmd)
			notes := result.State.Combatants[i].Notes
			if notes == "" {
				out.PrintMessage("No notes")
				return nil
			}
			return out.PrintNotes(notes)
		},
	}
}

func intArg(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number: %q", name, s)
	}
	return v, nil
}
