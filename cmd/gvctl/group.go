package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/types"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups and their memberships",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")
		g, err := vault.Groups.Create(cmd.Context(), args[0], description, actorOrFail())
		checkErr(err)
		printResult(g, func() { fmt.Println(g.ID) })
	},
}

var groupGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := vault.Groups.Get(cmd.Context(), args[0])
		checkErr(err)
		printResult(g, func() { fmt.Printf("%+v\n", g) })
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all groups",
	Run: func(cmd *cobra.Command, args []string) {
		list, err := vault.Groups.List(cmd.Context())
		checkErr(err)
		printResult(list, func() {
			for _, g := range list {
				fmt.Println(g.ID, g.Name)
			}
		})
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an empty group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(vault.Groups.Delete(cmd.Context(), args[0]))
		printResult(map[string]string{"id": args[0], "status": "deleted"}, func() { fmt.Println("deleted", args[0]) })
	},
}

var groupAddMemberCmd = &cobra.Command{
	Use:   "add-member <group-id> <member-id>",
	Short: "Add a user or group as a member of a group",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		memberType, _ := cmd.Flags().GetString("type")
		pt := types.PrincipalUser
		if memberType == "group" {
			pt = types.PrincipalGroup
		}
		err := vault.Groups.AddMember(cmd.Context(), args[0], pt, args[1], actorOrFail())
		checkErr(err)
		printResult(map[string]string{"status": "added"}, func() { fmt.Println("added", args[1], "to", args[0]) })
	},
}

var groupRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member <group-id> <member-id>",
	Short: "Remove a member from a group",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		memberType, _ := cmd.Flags().GetString("type")
		pt := types.PrincipalUser
		if memberType == "group" {
			pt = types.PrincipalGroup
		}
		checkErr(vault.Groups.RemoveMember(cmd.Context(), args[0], pt, args[1]))
		printResult(map[string]string{"status": "removed"}, func() { fmt.Println("removed", args[1], "from", args[0]) })
	},
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <group-id>",
	Short: "List a group's direct members",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		members, err := vault.Groups.DirectMembers(cmd.Context(), args[0])
		checkErr(err)
		printResult(members, func() {
			for _, m := range members {
				fmt.Println(m.MemberType, m.MemberID)
			}
		})
	},
}

var groupsForUserCmd = &cobra.Command{
	Use:   "for-user <user-id>",
	Short: "List every group a user belongs to, transitively",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		groups, err := vault.Groups.GroupsContainingUser(cmd.Context(), args[0])
		checkErr(err)
		printResult(groups, func() {
			for _, g := range groups {
				fmt.Println(g.ID, g.Name)
			}
		})
	},
}

func init() {
	groupCreateCmd.Flags().String("description", "", "Human-readable description")
	groupAddMemberCmd.Flags().String("type", "user", "user or group")
	groupRemoveMemberCmd.Flags().String("type", "user", "user or group")
	groupCmd.AddCommand(groupCreateCmd, groupGetCmd, groupListCmd, groupDeleteCmd,
		groupAddMemberCmd, groupRemoveMemberCmd, groupMembersCmd, groupsForUserCmd)
}
