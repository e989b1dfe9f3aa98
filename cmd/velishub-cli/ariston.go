package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type heaterState struct {
	GatewayID         string  `json:"gateway_id"`
	Name              string  `json:"name"`
	Available         bool    `json:"available"`
	On                bool    `json:"on"`
	Eco               bool    `json:"eco"`
	Mode              string  `json:"mode"`
	Temperature       float64 `json:"temperature_celsius"`
	TargetTemperature float64 `json:"target_temperature_celsius"`
	UpdatedAt         string  `json:"updated_at"`
}

type commandReply struct {
	Status string      `json:"status"`
	State  heaterState `json:"state"`
}

var aristonCmd = &cobra.Command{
	Use:   "ariston",
	Short: "Control Ariston Velis water heaters",
}

var aristonPlantsCmd = &cobra.Command{
	Use:   "plants",
	Short: "List registered water heaters",
	Run: func(cmd *cobra.Command, args []string) {
		var reply struct {
			Plants []struct {
				GatewayID string `json:"gw"`
				Name      string `json:"name"`
			} `json:"plants"`
		}
		if err := getJSON("/api/ariston/plants", &reply); err != nil {
			fatal("list plants", err)
		}
		if jsonOutput {
			printJSON(reply.Plants)
			return
		}
		rows := [][]string{{"GATEWAY", "NAME"}}
		for _, p := range reply.Plants {
			rows = append(rows, []string{p.GatewayID, p.Name})
		}
		printTable(rows)
	},
}

var aristonStatusCmd = &cobra.Command{
	Use:   "status [gateway-id]",
	Short: "Fetch one heater's live status",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var state heaterState
		if err := getJSON("/api/ariston/plants/"+args[0]+"/status", &state); err != nil {
			fatal("status", err)
		}
		printHeaterState(state)
	},
}

var aristonSetTempCmd = &cobra.Command{
	Use:   "set-temp [gateway-id] [celsius]",
	Short: "Set the target temperature (40-80, whole degrees)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		temp, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fatal("set-temp", fmt.Errorf("invalid temperature %q", args[1]))
		}
		var reply commandReply
		payload := map[string]float64{"temperature_celsius": temp}
		if err := postJSON("/api/ariston/plants/"+args[0]+"/temperature", payload, &reply); err != nil {
			fatal("set-temp", err)
		}
		printHeaterState(reply.State)
	},
}

var aristonHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the heater event log",
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		if gw, _ := cmd.Flags().GetString("gw"); gw != "" {
			query.Set("gw", gw)
		}
		if typ, _ := cmd.Flags().GetString("type"); typ != "" {
			query.Set("type", typ)
		}
		path := "/api/ariston/history"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var reply struct {
			Events []struct {
				EventID     string `json:"event_id"`
				OccurredAt  string `json:"occurred_at"`
				GatewayID   string `json:"gateway_id"`
				Type        string `json:"type"`
				Description string `json:"description"`
			} `json:"events"`
		}
		if err := getJSON(path, &reply); err != nil {
			fatal("history", err)
		}
		if jsonOutput {
			printJSON(reply.Events)
			return
		}
		rows := [][]string{{"TIME", "GATEWAY", "TYPE", "DESCRIPTION"}}
		for _, e := range reply.Events {
			rows = append(rows, []string{e.OccurredAt, e.GatewayID, e.Type, e.Description})
		}
		printTable(rows)
	},
}

func toggleCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			on, err := parseOnOff(args[1])
			if err != nil {
				fatal(action, err)
			}
			var reply commandReply
			if err := postJSON("/api/ariston/plants/"+args[0]+"/"+action, map[string]bool{"on": on}, &reply); err != nil {
				fatal(action, err)
			}
			printHeaterState(reply.State)
		},
	}
}

func parseOnOff(raw string) (bool, error) {
	switch raw {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", raw)
}

func printHeaterState(state heaterState) {
	if jsonOutput {
		printJSON(state)
		return
	}
	availability := "available"
	if !state.Available {
		availability = "unavailable"
	}
	fmt.Printf("%s (%s): %s\n", state.Name, state.GatewayID, availability)
	fmt.Printf("  power: %s  mode: %s  eco: %s\n", onOff(state.On), state.Mode, onOff(state.Eco))
	fmt.Printf("  temperature: %.1f°C  target: %.1f°C\n", state.Temperature, state.TargetTemperature)
	if state.UpdatedAt != "" {
		fmt.Printf("  updated: %s\n", state.UpdatedAt)
	}
}

func init() {
	aristonHistoryCmd.Flags().String("gw", "", "filter by gateway id")
	aristonHistoryCmd.Flags().String("type", "", "filter by event type (COMMAND, AVAILABILITY, AUTH)")

	aristonCmd.AddCommand(aristonPlantsCmd)
	aristonCmd.AddCommand(aristonStatusCmd)
	aristonCmd.AddCommand(aristonSetTempCmd)
	aristonCmd.AddCommand(toggleCmd("power [gateway-id] [on|off]", "Switch the heater on or off", "power"))
	aristonCmd.AddCommand(toggleCmd("eco [gateway-id] [on|off]", "Toggle eco mode", "eco"))
	aristonCmd.AddCommand(toggleCmd("schedule [gateway-id] [on|off]", "Toggle the timed program", "schedule"))
	aristonCmd.AddCommand(aristonHistoryCmd)
}
