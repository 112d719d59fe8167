package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/types"
	"github.com/graphvault/core/internal/versionstore"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Create, read, update, and delete entities",
}

var entityCreateCmd = &cobra.Command{
	Use:   "create <type-id>",
	Short: "Create a new entity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		props, _ := cmd.Flags().GetString("properties")
		properties := parseProperties(props)

		row, err := vault.Store.Create(cmd.Context(), versionstore.CreateInput{
			Kind:       types.KindEntity,
			TypeID:     args[0],
			Properties: properties,
			Creator:    actorOrFail(),
		})
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID) })
	},
}

var entityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch an entity's current version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.GetLatest(cmd.Context(), callerFor(actor), types.KindEntity, args[0])
		checkErr(err)
		printResult(row, func() { fmt.Printf("%+v\n", row) })
	},
}

var entityUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Append a new version with updated properties",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		props, _ := cmd.Flags().GetString("properties")
		row, err := vault.Store.Update(cmd.Context(), callerFor(actorOrFail()), versionstore.UpdateInput{
			Kind:       types.KindEntity,
			AnyID:      args[0],
			Properties: parseProperties(props),
			Editor:     actor,
		})
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "version", row.Version) })
	},
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete an entity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.SoftDelete(cmd.Context(), callerFor(actorOrFail()), types.KindEntity, args[0], actor)
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "deleted") })
	},
}

var entityRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a soft-deleted entity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		row, err := vault.Store.Restore(cmd.Context(), callerFor(actorOrFail()), types.KindEntity, args[0], actor)
		checkErr(err)
		printResult(row, func() { fmt.Println(row.ID, "restored") })
	},
}

var entityHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show every version with its diff against the previous one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hist, err := vault.Store.HistoryWithDiffs(cmd.Context(), callerFor(actor), types.KindEntity, args[0])
		checkErr(err)
		printResult(hist, func() {
			for _, h := range hist {
				fmt.Printf("v%d  %+v\n", h.Row.Version, h.Row.Properties)
			}
		})
	},
}

func init() {
	entityCreateCmd.Flags().String("properties", "{}", "JSON object of initial properties")
	entityUpdateCmd.Flags().String("properties", "{}", "JSON object of new properties")
	entityCmd.AddCommand(entityCreateCmd, entityGetCmd, entityUpdateCmd, entityDeleteCmd, entityRestoreCmd, entityHistoryCmd)
}

func parseProperties(raw string) types.Properties {
	var props types.Properties
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		fatal("invalid --properties JSON: %v", err)
	}
	return props
}

func callerFor(userID string) types.Caller {
	return types.Caller{UserID: userID}
}
