package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// configCmd manages the in-database key/value config table (internal/dbconfig),
// distinct from gvctl's own local CLIConfig file in config.go.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write the store's in-database config table",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch one config value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, err := vault.Config.Get(cmd.Context(), args[0])
		checkErr(err)
		printResult(map[string]string{"key": args[0], "value": v}, func() { fmt.Println(v) })
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one config value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(vault.Config.Set(cmd.Context(), args[0], args[1]))
		printResult(map[string]string{"status": "ok"}, func() { fmt.Println("set", args[0]) })
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every config key/value pair",
	Run: func(cmd *cobra.Command, args []string) {
		all, err := vault.Config.GetAll(cmd.Context())
		checkErr(err)
		printResult(all, func() {
			for k, v := range all {
				fmt.Println(k, "=", v)
			}
		})
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a config key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		checkErr(vault.Config.Delete(cmd.Context(), args[0]))
		printResult(map[string]string{"status": "deleted"}, func() { fmt.Println("deleted", args[0]) })
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd, configDeleteCmd)
}
