package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/combattracker/internal/api/middleware"
	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
)

func newRollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roll <expression>",
		Short: "Roll dice, e.g. 2d6+3",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Roll

			req := request.RollRequest{Expression: strings.Join(args, "")}
			if err := client.Post(cmd.Context(), apiPath("dice", "roll"), req, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newNotesCmd() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "notes [file]",
		Short: "Render markdown notes with dice and bracket tags",
		Long: `Render markdown notes from a file, or stdin when no file is given.

By default the notes are rendered locally for the terminal. With --html the
server renders them to sanitized HTML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readNotes(cmd, args)
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if !html {
				return out.PrintNotes(src)
			}

			var result response.Markdown
			if err := client.Post(cmd.Context(), apiPath("markdown"), request.MarkdownRequest{Text: src}, &result); err != nil {
				return err
			}
			if cfg.Output == "json" {
				out.Print(result)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), result.HTML)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render to HTML on the server")

	return cmd
}

func readNotes(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newKeyHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key-hash <api-key>",
		Short: "Hash an API key for COMBAT_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		// Runs offline
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
