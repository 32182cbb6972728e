package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/model"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player character library",
	}

	cmd.AddCommand(newLibraryListCmd[model.SavedPlayer]("players"))
	cmd.AddCommand(newLibraryGetCmd[model.SavedPlayer]("players", "player"))
	cmd.AddCommand(newLibraryDeleteCmd("players", "player"))
	cmd.AddCommand(newPlayerSaveCmd("create"))
	cmd.AddCommand(newPlayerSaveCmd("update"))

	return cmd
}

func newMonsterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monster",
		Short: "Monster stat block library",
	}

	cmd.AddCommand(newLibraryListCmd[model.SavedMonster]("monsters"))
	cmd.AddCommand(newLibraryGetCmd[model.SavedMonster]("monsters", "monster"))
	cmd.AddCommand(newLibraryDeleteCmd("monsters", "monster"))
	cmd.AddCommand(newMonsterSaveCmd("create"))
	cmd.AddCommand(newMonsterSaveCmd("update"))

	return cmd
}

func newLibraryListCmd[T any](collection string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List " + collection,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []T

			if err := client.Get(cmd.Context(), apiPath(collection), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newLibraryGetCmd[T any](collection, noun string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := new(T)

			if err := client.Get(cmd.Context(), apiPath(collection, args[0]), result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newLibraryDeleteCmd(collection, noun string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), apiPath(collection, args[0]), nil); err != nil {
				return err
			}

			NewOutput(cmd).PrintMessage(fmt.Sprintf("Deleted %s %s", noun, args[0]))
			return nil
		},
	}
}

// saveArgs returns the arguments for a create or update command
func saveArgs(action string) (string, cobra.PositionalArgs) {
	if action == "update" {
		return "update <id>", cobra.ExactArgs(1)
	}
	return action, cobra.NoArgs
}

func newPlayerSaveCmd(action string) *cobra.Command {
	var req request.PlayerRequest
	use, positional := saveArgs(action)

	cmd := &cobra.Command{
		Use:   use,
		Short: "Save a player character (" + action + ")",
		Args:  positional,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := new(model.SavedPlayer)
			var err error
			if len(args) == 1 {
				err = client.Put(cmd.Context(), apiPath("players", args[0]), req, result)
			} else {
				err = client.Post(cmd.Context(), apiPath("players"), req, result)
			}
			if err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Character name (required)")
	cmd.Flags().IntVar(&req.MaxHP, "max-hp", 0, "Maximum HP")
	cmd.Flags().IntVar(&req.AC, "ac", 10, "Armor class")
	cmd.Flags().IntVar(&req.InitiativeBonus, "init-bonus", 0, "Initiative bonus")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Markdown notes")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newMonsterSaveCmd(action string) *cobra.Command {
	var req request.MonsterRequest
	use, positional := saveArgs(action)

	cmd := &cobra.Command{
		Use:   use,
		Short: "Save a monster stat block (" + action + ")",
		Long: `Save a monster. With --hp-formula and no --max-hp, max HP is the
formula's average.`,
		Args: positional,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := new(model.SavedMonster)
			var err error
			if len(args) == 1 {
				err = client.Put(cmd.Context(), apiPath("monsters", args[0]), req, result)
			} else {
				err = client.Post(cmd.Context(), apiPath("monsters"), req, result)
			}
			if err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Monster name (required)")
	cmd.Flags().IntVar(&req.MaxHP, "max-hp", 0, "Maximum HP")
	cmd.Flags().StringVar(&req.HPFormula, "hp-formula", "", "HP dice formula, e.g. 2d6+2")
	cmd.Flags().IntVar(&req.AC, "ac", 10, "Armor class")
	cmd.Flags().IntVar(&req.InitiativeBonus, "init-bonus", 0, "Initiative bonus")
	cmd.Flags().StringVar(&req.ChallengeRating, "cr", "", "Challenge rating")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Markdown notes")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
