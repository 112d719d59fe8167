package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// printResult prints v as pretty JSON when --json is set, else falls back
// to text via textFn.
func printResult(v any, textFn func()) {
	if jsonOutput {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fatal("marshal output: %v", err)
		}
		fmt.Println(string(b))
		return
	}
	textFn()
}

func checkErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "gvctl:", err)
		os.Exit(1)
	}
}
