package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/types"
	"github.com/graphvault/core/internal/versionstore"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Create, read, update, and delete links between entities",
}

var linkCreateCmd = &cobra.Command{
	Use:   "create <type-id>",
	Short: "Create a link from --source to --target",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source, _ := cmd.Flags().GetString("source")
		target, _ := cmd.Flags().GetString("target")
		if source == "" || target == "" {
			fatal("--source and --target are required")
		}
		props, _ := cmd.Flags().GetString("properties")

		row, err := vault.Store.Create(cmd.Context(), versionstore.CreateInput{
			Kind:       types.KindLink,
			TypeID:     args[0],
			Properties: parseProperties(props),
			Creator:    actorOrFail(),
			LinkSource: source,
			LinkTarget: target,
		})
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID) })
	},
}

var linkGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a link's current version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.GetLatest(cmd.Context(), callerFor(actor), types.KindLink, args[0])
		checkErr(err)
		printResult(row, func() { fmt.Printf("%+v\n", row) })
	},
}

var linkUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Append a new version with updated properties",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		props, _ := cmd.Flags().GetString("properties")
		row, err := vault.Store.Update(cmd.Context(), callerFor(actorOrFail()), versionstore.UpdateInput{
			Kind:       types.KindLink,
			AnyID:      args[0],
			Properties: parseProperties(props),
			Editor:     actor,
		})
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "version", row.Version) })
	},
}

var linkDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete a link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.SoftDelete(cmd.Context(), callerFor(actorOrFail()), types.KindLink, args[0], actor)
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "deleted") })
	},
}

var linkRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a soft-deleted link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.Restore(cmd.Context(), callerFor(actorOrFail()), types.KindLink, args[0], actor)
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "restored") })
	},
}

func init() {
	linkCreateCmd.Flags().String("source", "", "Source entity id")
	linkCreateCmd.Flags().String("target", "", "Target entity id")
	linkCreateCmd.Flags().String("properties", "{}", "JSON object of initial properties")
	linkUpdateCmd.Flags().String("properties", "{}", "JSON object of new properties")
	linkCmd.AddCommand(linkCreateCmd, linkGetCmd, linkUpdateCmd, linkDeleteCmd, linkRestoreCmd)
}
