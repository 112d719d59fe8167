package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/types"
	"github.com/graphvault/core/internal/typeregistry"
)

var typeCmd = &cobra.Command{
	Use:   "type",
	Short: "Manage entity and link type definitions",
}

var typeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new entity or link type",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		description, _ := cmd.Flags().GetString("description")
		schema, _ := cmd.Flags().GetString("schema")

		var cat types.TypeCategory
		switch category {
		case "entity":
			cat = types.CategoryEntity
		case "link":
			cat = types.CategoryLink
		default:
			fatal("--category must be entity or link")
		}

		t, err := vault.Types.Create(cmd.Context(), typeregistry.CreateInput{
			Name:        args[0],
			Category:    cat,
			Description: description,
			JSONSchema:  schema,
			Creator:     actorOrFail(),
		})
		checkErr(err)
		printResult(t, func() { fmt.Println(t.ID) })
	},
}

var typeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a type definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := vault.Types.Get(cmd.Context(), args[0])
		checkErr(err)
		printResult(t, func() { fmt.Printf("%+v\n", t) })
	},
}

var typeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered types, optionally filtered by category",
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		var cat types.TypeCategory
		switch category {
		case "entity":
			cat = types.CategoryEntity
		case "link":
			cat = types.CategoryLink
		}
		list, err := vault.Types.List(cmd.Context(), cat)
		checkErr(err)
		printResult(list, func() {
			for _, t := range list {
				fmt.Println(t.ID, t.Name, t.Category)
			}
		})
	},
}

var typeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a type definition (refused while any object still uses it)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(vault.Types.Delete(cmd.Context(), args[0]))
		printResult(map[string]string{"id": args[0], "status": "deleted"}, func() { fmt.Println("deleted", args[0]) })
	},
}

func init() {
	typeCreateCmd.Flags().String("category", "", "entity or link")
	typeCreateCmd.Flags().String("description", "", "Human-readable description")
	typeCreateCmd.Flags().String("schema", "", "Optional JSON schema text")
	typeListCmd.Flags().String("category", "", "Filter: entity or link")
	typeCmd.AddCommand(typeCreateCmd, typeGetCmd, typeListCmd, typeDeleteCmd)
}
