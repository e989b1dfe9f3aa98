package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "velishub-cli",
	Short: "Velishub control CLI",
	Long:  `A command line interface for the velishub daemon and its plugins.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "", "daemon address (default $VELISHUB_ADDR or http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of tables")

	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(aristonCmd)
}

func resolveAddr() string {
	if serverAddr != "" {
		return serverAddr
	}
	if env := os.Getenv("VELISHUB_ADDR"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
