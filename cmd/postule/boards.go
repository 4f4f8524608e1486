package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List all configured boards",
	Long:  "Reads the config and prints a table of all configured job boards.",
	RunE:  runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-25s %-12s %-20s %s\n", "Board", "ATS", "Token", "Status")
	fmt.Println(strings.Repeat("─", 65))

	enabled, disabled := 0, 0
	for _, b := range cfg.Boards {
		status := "enabled"
		if !b.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Printf("%-25s %-12s %-20s %s\n", b.Name, b.ATS, b.Token, status)
	}

	fmt.Printf("\nTotal: %d boards (%d enabled, %d disabled)\n", len(cfg.Boards), enabled, disabled)
	return nil
}
