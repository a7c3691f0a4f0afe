// Package monitor is a subcommand of the root command. It periodically
// re-reads the currently running frequency of each CPU for display and can
// export the readings as Prometheus metrics. It is read-only: nothing here
// mutates settings or baselines.
package monitor

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cpupowerctl/internal/common"
	"cpupowerctl/internal/helper"
)

const cmdName = "monitor"

var examples = []string{
	fmt.Sprintf("  Watch current frequencies:             $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Sample once per second, five times:    $ %s %s --interval 1s --count 5", common.AppName, cmdName),
	fmt.Sprintf("  Export as Prometheus metrics:          $ %s %s --prometheus :9120", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Periodically show the currently running frequency per CPU",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagInterval   time.Duration
	flagCount      int
	flagPrometheus string
)

var (
	freqGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpupowerctl_cpu_frequency_mhz",
			Help: "Currently running frequency per CPU in MHz",
		},
		[]string{"cpu"},
	)
	onlineGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpupowerctl_cpu_online",
			Help: "Whether the CPU is online (1) or offline (0)",
		},
		[]string{"cpu"},
	)
)

func init() {
	Cmd.Flags().DurationVar(&flagInterval, "interval", 500*time.Millisecond, "refresh interval")
	Cmd.Flags().IntVar(&flagCount, "count", 0, "number of samples, 0 for until interrupted")
	Cmd.Flags().StringVar(&flagPrometheus, "prometheus", "", "listen address for the Prometheus exporter, e.g. :9120")
}

func runCmd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	client := helper.NewSysfs()
	present := client.CpusPresent()
	if len(present) == 0 {
		err := fmt.Errorf("no CPUs found")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	if flagPrometheus != "" {
		prometheus.MustRegister(freqGauge, onlineGauge)
		go startPrometheusServer(flagPrometheus)
	}

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChannel)

	ticker := time.NewTicker(flagInterval)
	defer ticker.Stop()

	inPlace := term.IsTerminal(int(os.Stdout.Fd()))
	samples := 0
	lines := sample(client, present, inPlace, 0)
	for {
		select {
		case sig := <-sigChannel:
			slog.Debug("received signal", slog.String("signal", sig.String()))
			return nil
		case <-ticker.C:
			samples++
			lines = sample(client, present, inPlace, lines)
			if flagCount > 0 && samples >= flagCount {
				return nil
			}
		}
	}
}

// sample prints one table of readings and returns the number of lines
// printed so the next round can reprint in place on a terminal.
func sample(client *helper.Sysfs, cpus []int, inPlace bool, prevLines int) int {
	online := mapset.NewSet(client.CpusOnline()...)

	// utilization is display-only and best-effort
	var busy []float64
	if pct, err := cpu.Percent(0, true); err == nil {
		busy = pct
	}

	if inPlace && prevLines > 0 {
		fmt.Printf("\033[%dA", prevLines)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CPU\tONLINE\tCURRENT MHZ\tBUSY %")
	for _, cpuID := range cpus {
		isOnline := online.Contains(cpuID)
		current := "-"
		util := "-"
		if isOnline {
			if f, err := client.CurrentFreq(cpuID); err == nil {
				current = fmt.Sprintf("%.2f", f)
				freqGauge.WithLabelValues(strconv.Itoa(cpuID)).Set(f)
			}
			if cpuID < len(busy) {
				util = fmt.Sprintf("%.1f", busy[cpuID])
			}
		} else {
			freqGauge.WithLabelValues(strconv.Itoa(cpuID)).Set(0)
		}
		onlineGauge.WithLabelValues(strconv.Itoa(cpuID)).Set(boolGauge(isOnline))
		fmt.Fprintf(w, "%d\t%v\t%s\t%s\n", cpuID, isOnline, current, util)
	}
	w.Flush()
	return len(cpus) + 1
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func startPrometheusServer(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Debug("starting prometheus exporter", slog.String("addr", listenAddr))
	server := &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		slog.Error("prometheus exporter stopped", slog.String("error", err.Error()))
	}
}
