// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/bobbin/pkg/tool"
	"github.com/teradata-labs/bobbin/pkg/tool/demo"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in demonstration tools",
	Long: `List the built-in demonstration tools the agent can call, with their
parameter schemas. Use --json to see the exact schema sent to the model.`,
	Run: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Print full tool schemas as JSON")
}

func runTools(cmd *cobra.Command, args []string) {
	tools := demo.All()

	if toolsJSON {
		schemas := make([]tool.Schema, 0, len(tools))
		for _, t := range tools {
			schemas = append(schemas, tool.Schema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			})
		}
		printJSON(schemas)
		return
	}

	fmt.Println("Available tools:")
	fmt.Println("================")
	for _, t := range tools {
		fmt.Printf("  %-17s %s\n", t.Name(), t.Description())
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println(`  bobbin run --tools get_weather,calculator "..."`)
}
