package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zombor/scanai/internal/history"
)

func runInteractive(ctx context.Context, cfg config) error {
	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.controller.Start(ctx); err != nil {
		return err
	}
	err = a.repl(ctx, os.Stdin, os.Stdout)
	a.drain(drainGrace)
	return err
}

// runOnce warms up, scans a single frame and reports whether it succeeded
func runOnce(ctx context.Context, cfg config) error {
	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.controller.Start(ctx); err != nil {
		return err
	}
	if err := a.waitReady(ctx); err != nil {
		return err
	}

	outcome, err := a.pipeline.Trigger(ctx).Wait(ctx)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		return fmt.Errorf("scan failed: %w", outcome.Err)
	}
	return nil
}

func runProbe(ctx context.Context, cfg config) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	result := client.Probe(ctx)
	fmt.Printf("%s %s (HTTP %d)\n", client.BaseURL(), result.Status, result.StatusCode)
	if !result.Reachable() {
		return result.Err
	}
	return nil
}

func runHistory(cfg config) error {
	if cfg.dbPath == "" {
		return fmt.Errorf("history is disabled (empty --db)")
	}
	db, err := history.NewBoltDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer db.Close()

	entries, err := db.Recent(cfg.limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	renderHistory(os.Stdout, entries)
	return nil
}

// renderHistory prints entries newest first as a table
func renderHistory(w io.Writer, entries []*history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"When", "Attempt", "Result", "Numbers", "Detected Text"})
	for _, e := range entries {
		result := strconv.Itoa(e.Sum)
		if !e.OK {
			result = e.Reason
		}
		tw.AppendRow(table.Row{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Attempt,
			result,
			joinInts(e.Numbers),
			strings.Join(strings.Fields(e.DetectedText), " "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Attempt", Align: text.AlignRight},
		{Name: "Numbers", WidthMax: 24, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Detected Text", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
	})
	tw.Render()
}

func joinInts(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
