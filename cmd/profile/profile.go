// Package profile is a subcommand of the root command. It manages named
// bundles of per-CPU settings: list, show, save, delete, apply.
package profile

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cpupowerctl/internal/appconf"
	"cpupowerctl/internal/common"
	"cpupowerctl/internal/helper"
	"cpupowerctl/internal/profile"
	"cpupowerctl/internal/reconcile"
)

const cmdName = "profile"

var examples = []string{
	fmt.Sprintf("  List profiles:                  $ %s %s list", common.AppName, cmdName),
	fmt.Sprintf("  Save the current settings:      $ %s %s save quiet", common.AppName, cmdName),
	fmt.Sprintf("  Recall a profile:               $ %s %s apply quiet", common.AppName, cmdName),
	fmt.Sprintf("  Recall the default profile:     $ %s %s apply --default", common.AppName, cmdName),
	fmt.Sprintf("  Delete a profile:               $ %s %s delete quiet", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Manage and recall named settings profiles",
	Example:       strings.Join(examples, "\n"),
	GroupID:       "primary",
	SilenceErrors: true,
}

var (
	flagSystem  bool
	flagDefault bool
)

func init() {
	saveCmd.Flags().BoolVar(&flagSystem, "system", false, "save as a system profile instead of a user profile")
	applyCmd.Flags().BoolVar(&flagDefault, "default", false, "apply the configured default profile")
	Cmd.AddCommand(listCmd, showCmd, saveCmd, deleteCmd, applyCmd, setDefaultCmd)
}

var listCmd = &cobra.Command{
	Use:           "list",
	Short:         "List built-in, system, and user profiles",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		printGroup(store, "Built-in profiles", func(p *profile.Profile) bool { return !p.IsCustom() })
		printGroup(store, "System profiles", func(p *profile.Profile) bool { return p.IsCustom() && p.IsSystem() })
		printGroup(store, "User profiles", func(p *profile.Profile) bool { return p.IsCustom() && !p.IsSystem() })
		return nil
	},
}

func printGroup(store *profile.Store, title string, match func(*profile.Profile) bool) {
	fmt.Printf("%s:\n", title)
	for _, name := range store.Names() {
		p, _ := store.Get(name)
		if !match(p) {
			continue
		}
		marker := " "
		if name == store.DefaultProfile() {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, name)
	}
}

var showCmd = &cobra.Command{
	Use:           "show <name>",
	Short:         "Show the per-CPU entries of a profile",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		p, ok := store.Get(args[0])
		if !ok {
			return printErr(profile.ErrProfileNotFound)
		}
		entries := p.Entries()
		if len(entries) == 0 {
			// built-ins apply one entry to every CPU
			entry, _ := p.EntryFor(0)
			fmt.Printf("%s: governor %s, full frequency range, all CPUs online\n", p.Name(), entry.Governor)
			return nil
		}
		cpus := make([]int, 0, len(entries))
		for cpu := range entries {
			cpus = append(cpus, cpu)
		}
		sort.Ints(cpus)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CPU\tMIN SCALE\tMAX SCALE\tGOVERNOR\tONLINE")
		for _, cpu := range cpus {
			e := entries[cpu]
			fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%s\t%v\n", cpu, e.FreqMinScaled, e.FreqMaxScaled, e.Governor, e.Online)
		}
		w.Flush()
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:           "save <name>",
	Short:         "Save the current settings as a named profile",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		client := helper.NewSysfs()
		engine := reconcile.New(client, client)
		if err := engine.Load(); err != nil {
			return printErr(err)
		}
		p := engine.CaptureProfile(args[0], flagSystem)
		if err := store.Create(p); err != nil {
			return printErr(err)
		}
		if err := store.Save(); err != nil {
			return printErr(err)
		}
		fmt.Printf("Profile %q saved.\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:           "delete <name>",
	Short:         "Delete a user or system profile",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		if err := store.Delete(args[0]); err != nil {
			return printErr(err)
		}
		if err := store.Save(); err != nil {
			return printErr(err)
		}
		fmt.Printf("Profile %q deleted.\n", args[0])
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:           "apply [name]",
	Short:         "Recall a profile and apply it",
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		} else if flagDefault {
			name = store.DefaultProfile()
			if name == "" {
				return printErr(fmt.Errorf("no default profile configured"))
			}
		} else {
			return fmt.Errorf("profile name required unless --default is given")
		}
		p, ok := store.Get(name)
		if !ok {
			return printErr(profile.ErrProfileNotFound)
		}

		client := helper.NewSysfs()
		engine := reconcile.New(client, client)
		if err := engine.Load(); err != nil {
			return printErr(err)
		}
		engine.ApplyProfile(p)
		if !engine.Changed() {
			fmt.Printf("Profile %q already in effect.\n", name)
			return nil
		}
		ret, err := engine.Apply()
		if err != nil {
			return printErr(err)
		}
		if ret != 0 {
			msg := reconcile.ResultMessage(ret)
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			return fmt.Errorf("%s", strings.ToLower(strings.TrimSuffix(msg, ".")))
		}
		fmt.Printf("Profile %q applied.\n", name)
		return nil
	},
}

var setDefaultCmd = &cobra.Command{
	Use:           "set-default <name>",
	Short:         "Record the default profile",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, store, err := common.LoadState()
		if err != nil {
			return printErr(err)
		}
		if err := store.SetDefaultProfile(args[0]); err != nil {
			return printErr(err)
		}
		if err := store.Save(); err != nil {
			return printErr(err)
		}
		// keep the config-surface key in sync for consumers of the config file
		cfg.DefaultProfile = args[0]
		if err := cfg.Save(appconf.Path()); err != nil {
			return printErr(err)
		}
		fmt.Printf("Default profile set to %q.\n", args[0])
		return nil
	},
}

func printErr(err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	return err
}
