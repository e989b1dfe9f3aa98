package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type pluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

type pluginDescriptor struct {
	pluginSummary
	Services      []string `json:"services"`
	AgentsMD      string   `json:"agents_md"`
	HealthMessage string   `json:"health_message"`
	Dashboards    []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	} `json:"dashboards"`
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect the daemon's plugin registry",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered plugins",
	Run: func(cmd *cobra.Command, args []string) {
		var reply struct {
			Plugins []pluginSummary `json:"plugins"`
		}
		if err := getJSON("/api/registry/plugins", &reply); err != nil {
			fatal("list plugins", err)
		}
		if jsonOutput {
			printJSON(reply.Plugins)
			return
		}
		rows := [][]string{{"ID", "NAME", "VERSION", "STATUS"}}
		for _, p := range reply.Plugins {
			rows = append(rows, []string{p.PluginID, p.DisplayName, p.Version, p.Status})
		}
		printTable(rows)
	},
}

var pluginsDescribeCmd = &cobra.Command{
	Use:   "describe [plugin-id]",
	Short: "Show one plugin's registry record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var reply struct {
			Plugin pluginDescriptor `json:"plugin"`
		}
		if err := getJSON("/api/registry/plugins/"+args[0], &reply); err != nil {
			fatal("describe plugin", err)
		}
		if jsonOutput {
			printJSON(reply.Plugin)
			return
		}
		p := reply.Plugin
		fmt.Printf("%s (%s) %s\n", p.DisplayName, p.PluginID, p.Version)
		fmt.Printf("status: %s\n", p.Status)
		if p.HealthMessage != "" {
			fmt.Printf("health: %s\n", p.HealthMessage)
		}
		for _, svc := range p.Services {
			fmt.Printf("service: %s\n", svc)
		}
		for _, d := range p.Dashboards {
			fmt.Printf("dashboard: %s (%s)\n", d.Name, d.Path)
		}
		if p.AgentsMD != "" {
			fmt.Println()
			fmt.Println(p.AgentsMD)
		}
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsDescribeCmd)
}
