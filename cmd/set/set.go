// Package set is a subcommand of the root command. It stages edits to one or
// all CPUs and runs a reconciliation pass to apply them.
package set

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cpupowerctl/internal/common"
	"cpupowerctl/internal/helper"
	"cpupowerctl/internal/reconcile"
)

const cmdName = "set"

var examples = []string{
	fmt.Sprintf("  Pin CPU 0 to a fixed frequency:       $ %s %s --cpu 0 --min 1200 --max 1200", common.AppName, cmdName),
	fmt.Sprintf("  Set the governor on all CPUs:         $ %s %s --all --governor performance", common.AppName, cmdName),
	fmt.Sprintf("  Take CPU 3 offline:                   $ %s %s --cpu 3 --offline", common.AppName, cmdName),
	fmt.Sprintf("  Set energy preference on one CPU:     $ %s %s --cpu 1 --energy-pref power --energy-per-cpu", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Change frequency limits, governor, energy preference, or online state",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagCPU          int
	flagAll          bool
	flagMin          float64
	flagMax          float64
	flagGovernor     string
	flagEnergyPref   string
	flagOnline       bool
	flagOffline      bool
	flagEnergyPerCPU bool
)

const (
	flagCPUName          = "cpu"
	flagAllName          = "all"
	flagMinName          = "min"
	flagMaxName          = "max"
	flagGovernorName     = "governor"
	flagEnergyPrefName   = "energy-pref"
	flagOnlineName       = "online"
	flagOfflineName      = "offline"
	flagEnergyPerCPUName = "energy-per-cpu"
)

func init() {
	Cmd.Flags().IntVar(&flagCPU, flagCPUName, 0, "CPU id to edit")
	Cmd.Flags().BoolVar(&flagAll, flagAllName, false, "mirror the edit to all CPUs")
	Cmd.Flags().Float64Var(&flagMin, flagMinName, 0, "minimum scaling frequency in MHz")
	Cmd.Flags().Float64Var(&flagMax, flagMaxName, 0, "maximum scaling frequency in MHz")
	Cmd.Flags().StringVar(&flagGovernor, flagGovernorName, "", "scaling governor, e.g. performance, powersave")
	Cmd.Flags().StringVar(&flagEnergyPref, flagEnergyPrefName, "", "energy performance preference, e.g. balance_power")
	Cmd.Flags().BoolVar(&flagOnline, flagOnlineName, false, "bring the CPU online")
	Cmd.Flags().BoolVar(&flagOffline, flagOfflineName, false, "take the CPU offline")
	Cmd.Flags().BoolVar(&flagEnergyPerCPU, flagEnergyPerCPUName, false, "apply the energy preference to this CPU only instead of all CPUs")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagOnline && flagOffline {
		return fmt.Errorf("--%s and --%s are mutually exclusive", flagOnlineName, flagOfflineName)
	}
	edits := 0
	for _, name := range []string{flagMinName, flagMaxName, flagGovernorName, flagEnergyPrefName, flagOnlineName, flagOfflineName} {
		if cmd.Flags().Lookup(name).Changed {
			edits++
		}
	}
	if edits == 0 {
		return fmt.Errorf("no changes requested, specify at least one of --%s, --%s, --%s, --%s, --%s, --%s",
			flagMinName, flagMaxName, flagGovernorName, flagEnergyPrefName, flagOnlineName, flagOfflineName)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, _, err := common.LoadState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		return err
	}

	client := helper.NewSysfs()
	engine := reconcile.New(client, client)
	if err := engine.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		return err
	}

	if _, ok := engine.Settings(flagCPU); !ok {
		err := fmt.Errorf("cpu%d is not available", flagCPU)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	broadcast := flagAll || (cfg.AllCPUsDefault && !cmd.Flags().Lookup(flagAllName).Changed)
	engine.SetBroadcast(broadcast, flagCPU)
	engine.SetEnergyPerCPU(flagEnergyPerCPU || (cfg.EnergyPrefPerCPU && !cmd.Flags().Lookup(flagEnergyPerCPUName).Changed))

	if cmd.Flags().Lookup(flagMinName).Changed {
		engine.SetMinFreq(flagCPU, flagMin)
	}
	if cmd.Flags().Lookup(flagMaxName).Changed {
		engine.SetMaxFreq(flagCPU, flagMax)
	}
	if flagGovernor != "" {
		engine.SetGovernor(flagCPU, flagGovernor)
	}
	if flagEnergyPref != "" {
		if !engine.EnergyPrefAvailable() {
			fmt.Fprintln(os.Stderr, "Warning: energy preferences are not supported on this platform")
		}
		engine.SetEnergyPref(flagCPU, flagEnergyPref)
	}
	if flagOnline {
		engine.SetOnline(flagCPU, true)
	}
	if flagOffline {
		engine.SetOnline(flagCPU, false)
	}

	if !engine.Changed() {
		fmt.Println("Nothing to apply, settings already match.")
		return nil
	}

	ret, err := engine.Apply()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		return err
	}
	if ret != 0 {
		msg := reconcile.ResultMessage(ret)
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		return fmt.Errorf("%s", strings.ToLower(strings.TrimSuffix(msg, ".")))
	}
	fmt.Println(reconcile.ResultMessage(ret))
	return nil
}
