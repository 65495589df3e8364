// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/checklist"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Inspect registered checklists",
}

var checklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered checklist names",
	RunE:  runChecklistList,
}

var checklistShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a checklist's required document types",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecklistShow,
}

func init() {
	checklistCmd.PersistentFlags().String("checklist-dir", "", "directory of additional checklist YAML files")

	checklistCmd.AddCommand(checklistListCmd)
	checklistCmd.AddCommand(checklistShowCmd)
	rootCmd.AddCommand(checklistCmd)
}

func checklistRegistry(cmd *cobra.Command) (*checklist.Registry, error) {
	registry := checklist.NewRegistry()
	dir := stringSetting(cmd, "checklist-dir", "review.checklist_dir", "")
	if dir != "" {
		if err := registry.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func runChecklistList(cmd *cobra.Command, args []string) error {
	registry, err := checklistRegistry(cmd)
	if err != nil {
		return err
	}
	for _, name := range registry.Names() {
		fmt.Println(name)
	}
	return nil
}

func runChecklistShow(cmd *cobra.Command, args []string) error {
	registry, err := checklistRegistry(cmd)
	if err != nil {
		return err
	}
	c, err := registry.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Println(c.Name)
	for _, req := range c.Requirements {
		marker := "required"
		if req.Optional {
			marker = "optional"
		}
		fmt.Printf("  %-28s %s\n", req.Type, marker)
	}
	return nil
}
