package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/combattracker/internal/api/request"
	"github.com/mcoot/combattracker/internal/api/response"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Cloud sync commands",
		Long: `Sync the server's library and combats with cloud storage.

Running 'combat sync' with no subcommand performs a two-way sync: the side
with the newer timestamp wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SyncResult

			if err := client.Post(cmd.Context(), apiPath("sync"), nil, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncAuthURLCmd())
	cmd.AddCommand(newSyncAuthorizeCmd())
	cmd.AddCommand(newSyncRevokeCmd())
	cmd.AddCommand(newSyncTransferCmd("upload", "Overwrite the remote copy with local data"))
	cmd.AddCommand(newSyncTransferCmd("download", "Overwrite local data with the remote copy"))

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync provider and authorization state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SyncStatus

			if err := client.Get(cmd.Context(), apiPath("sync", "status"), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newSyncAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the provider's authorization URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.AuthorizationURL

			if err := client.Get(cmd.Context(), apiPath("sync", "authorize"), &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newSyncAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize <code>",
		Short: "Complete authorization with the provider's code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SyncStatus

			req := request.AuthorizeRequest{Code: args[0]}
			if err := client.Post(cmd.Context(), apiPath("sync", "authorize"), req, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}

func newSyncRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Forget the provider's credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), apiPath("sync", "revoke"), nil, nil); err != nil {
				return err
			}

			NewOutput(cmd).PrintMessage("Sync authorization revoked")
			return nil
		},
	}
}

func newSyncTransferCmd(direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   direction,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Transfer

			if err := client.Post(cmd.Context(), apiPath("sync", direction), nil, &result); err != nil {
				return err
			}

			NewOutput(cmd).Print(result)
			return nil
		},
	}
}
