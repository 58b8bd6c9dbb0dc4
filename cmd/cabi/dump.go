package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cabi/internal/driver"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <manifest.toml...>",
	Short: "Lower manifests of C function types to IR signatures",
	Long:  "Lower every function type declared in the given TOML manifests and print the ABI-mandated IR signature, attribute list and calling convention per function.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("triple", "", "target triple override (e.g. x86_64-linux-gnu)")
	dumpCmd.Flags().Bool("no-cache", false, "bypass the signature disk cache")
	dumpCmd.Flags().Int("jobs", 0, "max parallel workers for multiple manifests (0=unlimited)")
}

func runDump(cmd *cobra.Command, args []string) error {
	configureColor(cmd)

	tripleOverride, err := cmd.Flags().GetString("triple")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}

	var cache *driver.DiskCache
	if !noCache {
		// A broken cache dir only costs re-lowering; ignore it.
		cache, _ = driver.OpenDiskCache("cabi")
	}

	results := make([]*driver.DumpResult, len(args))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var mu sync.Mutex
	for i, path := range args {
		g.Go(func() error {
			m, data, err := driver.LoadManifest(path)
			if err != nil {
				return err
			}
			triple := m.Triple
			if tripleOverride != "" {
				triple = tripleOverride
			}
			key := driver.DigestFor(data, triple)
			if cached, ok, _ := cache.Get(key); ok {
				mu.Lock()
				results[i] = cached
				mu.Unlock()
				return nil
			}
			result, err := driver.Lower(m, tripleOverride)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := cache.Put(key, result); err != nil {
				fmt.Fprintf(os.Stderr, "warning: cache write failed: %v\n", err)
			}
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, result := range results {
		printDump(args[i], result)
	}
	return nil
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

func printDump(path string, result *driver.DumpResult) {
	headerColor.Printf("%s (%s, %s)\n", path, result.Triple, result.ABIName)

	width := 0
	for _, fn := range result.Functions {
		if len(fn.Name) > width {
			width = len(fn.Name)
		}
	}
	for _, fn := range result.Functions {
		nameColor.Printf("  %-*s", width, fn.Name)
		fmt.Printf("  %s", fn.Signature)
		if fn.CallConv != "ccc" {
			fmt.Printf(" [%s]", fn.CallConv)
		}
		fmt.Println()
		dimColor.Printf("  %-*s  source: %s\n", width, "", fn.Source)
		if fn.Attributes != "" {
			dimColor.Printf("  %-*s  attrs: %s\n", width, "", fn.Attributes)
		}
	}
}
