package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/filter"
	"github.com/graphvault/core/internal/types"
	"github.com/graphvault/core/internal/versionstore"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "List entities or links matching a property filter and the caller's ACL",
	Run: func(cmd *cobra.Command, args []string) {
		kindFlag, _ := cmd.Flags().GetString("kind")
		typeID, _ := cmd.Flags().GetString("type")
		where, _ := cmd.Flags().GetString("where")
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")

		kind := types.KindEntity
		if kindFlag == "link" {
			kind = types.KindLink
		}

		var expr filter.Expr
		if where != "" {
			leaf, err := parseEqFilter(where)
			checkErr(err)
			expr = leaf
		}

		rows, err := vault.Store.Find(cmd.Context(), callerFor(actorOrFail()), versionstore.FindInput{
			Kind:           kind,
			TypeID:         typeID,
			Expr:           expr,
			IncludeDeleted: includeDeleted,
		})
		checkErr(err)
		printResult(rows, func() {
			for _, r := range rows {
				fmt.Println(r.ID, r.TypeID, r.Properties)
			}
		})
	},
}

// parseEqFilter turns "path=value" into an equality Leaf; it is the CLI's
// minimal entry point into the filter compiler, not a full expression
// parser (and/or groups require the HTTP collaborator's JSON body).
func parseEqFilter(raw string) (filter.Leaf, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return filter.Leaf{}, fmt.Errorf("--where must be path=value, got %q", raw)
	}
	path, err := filter.ParsePath(parts[0])
	if err != nil {
		return filter.Leaf{}, err
	}
	return filter.Leaf{Path: path, Op: filter.OpEq, Value: parts[1]}, nil
}

func init() {
	findCmd.Flags().String("kind", "entity", "entity or link")
	findCmd.Flags().String("type", "", "Restrict to one type id")
	findCmd.Flags().String("where", "", "Property equality filter: path=value")
	findCmd.Flags().Bool("include-deleted", false, "Include soft-deleted rows")
	rootCmd.AddCommand(findCmd)
}
