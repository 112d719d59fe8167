package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphvault/core/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Traverse the entity graph: neighbors, BFS, and shortest path",
}

func parseDirection(raw string) graph.Direction {
	switch raw {
	case "in":
		return graph.DirectionIn
	case "both":
		return graph.DirectionBoth
	default:
		return graph.DirectionOut
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterFromFlags(cmd *cobra.Command) graph.Filter {
	linkTypes, _ := cmd.Flags().GetString("link-type")
	entityTypes, _ := cmd.Flags().GetString("entity-type")
	includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
	return graph.Filter{
		LinkTypeIDs:    splitCSV(linkTypes),
		EntityTypeIDs:  splitCSV(entityTypes),
		IncludeDeleted: includeDeleted,
	}
}

var graphNeighborsCmd = &cobra.Command{
	Use:   "neighbors <entity-id>",
	Short: "List an entity's direct neighbors through ACL-visible links",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("direction")
		neighbors, err := vault.Graph.Neighbors(cmd.Context(), callerFor(actor), args[0], parseDirection(dir), filterFromFlags(cmd))
		checkErr(err)
		printResult(neighbors, func() {
			for _, n := range neighbors {
				fmt.Println(n.Entity.ID, "via", n.Link.ID, "outbound:", n.Outbound)
			}
		})
	},
}

var graphBFSCmd = &cobra.Command{
	Use:   "bfs <entity-id>",
	Short: "Bounded breadth-first walk from an entity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("direction")
		depth, _ := cmd.Flags().GetInt("max-depth")
		paths, _ := cmd.Flags().GetBool("paths")

		visited, err := vault.Graph.BFS(cmd.Context(), callerFor(actor), args[0], parseDirection(dir), depth, paths, filterFromFlags(cmd))
		checkErr(err)
		printResult(visited, func() {
			for _, v := range visited {
				fmt.Println(v.Entity.ID, "depth", v.Depth)
			}
		})
	},
}

var graphShortestPathCmd = &cobra.Command{
	Use:   "shortest-path <from-id> <to-id>",
	Short: "Find the shortest outbound path between two entities",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		typeID, _ := cmd.Flags().GetString("type")
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")

		path, err := vault.Graph.ShortestPath(cmd.Context(), callerFor(actor), args[0], args[1], graph.ShortestPathOptions{
			TypeID:         typeID,
			IncludeDeleted: includeDeleted,
			MaxDepth:       maxDepth,
		})
		checkErr(err)
		printResult(path, func() {
			if len(path) == 0 {
				fmt.Println("no path found")
				return
			}
			for _, step := range path {
				fmt.Println(step.EntityID, step.LinkID)
			}
		})
	},
}

func init() {
	graphNeighborsCmd.Flags().String("direction", "out", "out, in, or both")
	graphNeighborsCmd.Flags().String("link-type", "", "Comma-separated link type ids to restrict to")
	graphNeighborsCmd.Flags().String("entity-type", "", "Comma-separated entity type ids to restrict to")
	graphNeighborsCmd.Flags().Bool("include-deleted", false, "Include soft-deleted links and entities")

	graphBFSCmd.Flags().String("direction", "out", "out, in, or both")
	graphBFSCmd.Flags().Int("max-depth", 3, "Maximum BFS depth (capped at 10)")
	graphBFSCmd.Flags().Bool("paths", false, "Record every distinct path reaching each node")
	graphBFSCmd.Flags().String("link-type", "", "Comma-separated link type ids to restrict to")
	graphBFSCmd.Flags().String("entity-type", "", "Comma-separated entity type ids to restrict to")
	graphBFSCmd.Flags().Bool("include-deleted", false, "Include soft-deleted links and entities")

	graphShortestPathCmd.Flags().String("type", "", "Restrict traversal to one link type id")
	graphShortestPathCmd.Flags().Bool("include-deleted", false, "Include soft-deleted links and entities")
	graphShortestPathCmd.Flags().Int("max-depth", graph.MaxBFSDepth, "Maximum search depth (1-10)")

	graphCmd.AddCommand(graphNeighborsCmd, graphBFSCmd, graphShortestPathCmd)
}
