// Package show is a subcommand of the root command. It prints the per-CPU
// scaling settings and, optionally, the hardware limits.
package show

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cpupowerctl/internal/common"
	"cpupowerctl/internal/helper"
	"cpupowerctl/internal/reconcile"
)

const cmdName = "show"

var examples = []string{
	fmt.Sprintf("  Show per-CPU settings:        $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Include hardware limits:      $ %s %s --limits", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Show per-CPU frequency scaling settings",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var flagLimits bool

func init() {
	Cmd.Flags().BoolVar(&flagLimits, "limits", false, "also show hardware limits, governors, and energy preferences")
}

func runCmd(cmd *cobra.Command, args []string) error {
	client := helper.NewSysfs()
	engine := reconcile.New(client, client)
	if err := engine.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}

	printHeader(client)
	printSettings(engine, client)
	if flagLimits {
		fmt.Println()
		printLimits(engine)
	}
	return nil
}

func printHeader(client *helper.Sysfs) {
	online := mapset.NewSet(client.CpusOnline()...)
	present := mapset.NewSet(client.CpusPresent()...)
	model := ""
	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		model = info[0].ModelName
	} else if err != nil {
		slog.Debug("cpu info unavailable", slog.String("error", err.Error()))
	}
	if model != "" {
		fmt.Println(model)
	}
	fmt.Printf("%d CPUs present, %d online\n\n", present.Cardinality(), online.Cardinality())
}

func printSettings(engine *reconcile.Engine, client *helper.Sysfs) {
	p := message.NewPrinter(language.English) // thousands separators on kHz-scale values
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CPU\tONLINE\tMIN MHZ\tMAX MHZ\tGOVERNOR\tENERGY PREF\tCURRENT MHZ")
	for _, cpuID := range engine.CPUs() {
		s, _ := engine.Settings(cpuID)
		minFreq, maxFreq := s.Freqs()
		current := "-"
		if s.Online() {
			if f, err := client.CurrentFreq(cpuID); err == nil {
				current = p.Sprintf("%.2f", f)
			}
		}
		fmt.Fprintf(w, "%d\t%v\t%s\t%s\t%s\t%s\t%s\n",
			cpuID, s.Online(),
			p.Sprintf("%.2f", minFreq), p.Sprintf("%.2f", maxFreq),
			s.Governor(), s.EnergyPref(), current)
	}
	w.Flush()
}

func printLimits(engine *reconcile.Engine) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CPU\tHW MIN MHZ\tHW MAX MHZ\tOFFLINE OK\tGOVERNORS\tENERGY PREFS")
	for _, cpuID := range engine.CPUs() {
		s, _ := engine.Settings(cpuID)
		hw := s.Hardware()
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\t%s\n",
			cpuID,
			p.Sprintf("%.2f", hw.MinFreq), p.Sprintf("%.2f", hw.MaxFreq),
			hw.AllowOffline,
			strings.Join(hw.Governors, " "),
			strings.Join(hw.EnergyPrefs, " "))
	}
	w.Flush()
}
