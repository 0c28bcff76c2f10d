// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package main is the CLI entry point for openviking: add-resource,
// add-skill, find, search, ls, read, abstract, overview, rm, mv, link,
// plus serve and config. Exit codes: 0 ok, 2 invalid args, 3 not found,
// 4 io, 5 backend error.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openviking/openviking/pkg/config"
	"github.com/openviking/openviking/pkg/errs"
	"github.com/openviking/openviking/pkg/retrieval"
	"github.com/openviking/openviking/pkg/server"
	"github.com/openviking/openviking/pkg/service"
	"github.com/openviking/openviking/pkg/viking"
)

var (
	// Version is the version of the CLI.
	Version = "0.1.0"
	// Commit is the git commit.
	Commit = "unknown"

	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "openviking",
		Short:   "OpenViking - context database for AI agents",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults to "+config.ConfigFileEnvVar+")")

	rootCmd.AddCommand(
		addResourceCmd(),
		addSkillCmd(),
		findCmd(),
		searchCmd(),
		lsCmd(),
		readCmd(),
		abstractCmd(),
		overviewCmd(),
		rmCmd(),
		mvCmd(),
		linkCmd(),
		serveCmd(),
		configCmd(),
		exportCmd(),
		importCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		exitErr(err)
	}
}

func loadApp(ctx context.Context) (*viking.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return viking.Bootstrap(ctx, cfg)
}

// exitErr prints a one-line {kind, uri, cause} error and exits
// with the code the taxonomy maps to.
func exitErr(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(errs.ExitCode(err))
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("openviking %s (commit: %s)\n", Version, Commit)
		},
	}
}

func addResourceCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "add-resource [path]",
		Short: "Parse a document and ingest it under viking://resources/",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, args[0], err))
			}

			rootURI, err := app.AddResource(ctx, args[0], data, reason)
			if err != nil {
				exitErr(err)
			}

			// Drain the resources scope synchronously so a single CLI
			// invocation produces a fully-indexed tree; a long-running
			// deployment instead runs `openviking serve`, which drains
			// continuously via queue.Processor.Run.
			drainScope(ctx, app, "resources")

			color.New(color.FgGreen).Printf("ingested: %s\n", rootURI)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason for this ingestion (accepted but not recorded)")
	return cmd
}

func addSkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-skill [name] [path]",
		Short: "Write a skill directly under viking://agent/skills/{name}/",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			content, err := os.ReadFile(args[1])
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, args[1], err))
			}

			skillURI, err := app.AddSkill(ctx, args[0], string(content))
			if err != nil {
				exitErr(err)
			}
			drainScope(ctx, app, "agent")
			color.New(color.FgGreen).Printf("added skill: %s\n", skillURI)
		},
	}
	return cmd
}

func findCmd() *cobra.Command {
	var contextType string
	var target string
	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Single typed-query retrieval, no intent analysis",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			result, err := app.Find(ctx, args[0], retrieval.ContextType(contextType), target)
			if err != nil {
				exitErr(err)
			}
			printJSON(result)
		},
	}
	cmd.Flags().StringVar(&contextType, "type", string(retrieval.ContextTypeResource), "context type: memory|resource|skill")
	cmd.Flags().StringVar(&target, "target", "", "target URI scope to search under")
	return cmd
}

func searchCmd() *cobra.Command {
	var sessionSummary string
	var assemble bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Intent analysis plus multi-query retrieval",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			result, err := app.Search(ctx, args[0], sessionSummary, nil)
			if err != nil {
				exitErr(err)
			}

			if !assemble {
				printJSON(result)
				return
			}
			window, err := app.Assemble(ctx, result)
			if err != nil {
				exitErr(err)
			}
			fmt.Println(window.Text)
		},
	}
	cmd.Flags().StringVar(&sessionSummary, "session", "", "compressed session summary for intent analysis")
	cmd.Flags().BoolVar(&assemble, "assemble", false, "pack results into a single token-budgeted prompt instead of printing JSON matches")
	return cmd
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [uri]",
		Short: "List a directory's immediate children",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			entries, err := app.FS.Ls(ctx, args[0])
			if err != nil {
				exitErr(err)
			}
			for _, e := range entries {
				marker := "-"
				if e.IsDir {
					marker = "d"
				}
				fmt.Printf("%s  %8d  %s\n", marker, e.Size, e.Name)
			}
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [uri]",
		Short: "Read a leaf URI's bytes",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			data, err := app.FS.Read(ctx, args[0])
			if err != nil {
				exitErr(err)
			}
			fmt.Print(string(data))
		},
	}
}

func abstractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abstract [uri]",
		Short: "Print a directory's L0 abstract",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			text, err := app.FS.Abstract(ctx, args[0])
			if err != nil {
				exitErr(err)
			}
			fmt.Println(text)
		},
	}
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview [uri]",
		Short: "Print a directory's L1 overview",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			text, err := app.FS.Overview(ctx, args[0])
			if err != nil {
				exitErr(err)
			}
			fmt.Println(text)
		},
	}
}

func rmCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm [uri]",
		Short: "Remove a URI from AGFS and the vector index",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			if err := app.FS.Rm(ctx, args[0], recursive); err != nil {
				exitErr(err)
			}
			color.New(color.FgGreen).Printf("removed: %s\n", args[0])
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove subtree recursively")
	return cmd
}

func mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv [src] [dst]",
		Short: "Rename a URI prefix across AGFS and the vector index",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			if err := app.FS.Mv(ctx, args[0], args[1]); err != nil {
				exitErr(err)
			}
			color.New(color.FgGreen).Printf("moved: %s -> %s\n", args[0], args[1])
		},
	}
}

func linkCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "link [from] [to...]",
		Short: "Merge directional relations into [from]'s .relations.json",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			if err := app.FS.Link(ctx, args[0], args[1:], reason, time.Now()); err != nil {
				exitErr(err)
			}
			color.New(color.FgGreen).Printf("linked: %s -> %v\n", args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded for this relation")
	return cmd
}

func serveCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP surface and the background semantic processor",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			cfg, err := config.Load(configPath)
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, "", err))
			}
			if host == "" {
				host = cfg.Server.Host
			}
			if port == 0 {
				port = cfg.Server.Port
			}
			addr := host + ":" + strconv.Itoa(port)

			// One Processor.Run worker per long-lived scope.
			for _, scope := range []string{"resources", "user", "agent", "session"} {
				go app.Processor.Run(ctx, scope, time.Second)
			}

			srv := server.New(app.Engine, app.Debug)
			srv.SetAddr(addr)

			fmt.Printf("openviking serving on %s\n", addr)
			go func() {
				if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
					fmt.Fprintf(os.Stderr, "server error: %v\n", err)
					os.Exit(1)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			fmt.Println("\nshutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "forced shutdown: %v\n", err)
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "server host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "server port (default from config)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(configPath)
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, "", err))
			}
			printJSON(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Run: func(cmd *cobra.Command, args []string) {
			path := config.GetConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Printf("config already exists at: %s\n", path)
				return
			}
			if err := os.MkdirAll(dirOf(path), 0755); err != nil {
				exitErr(errs.New(errs.KindFatalBackend, path, err))
			}
			cfg, err := config.LoadDefault()
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, "", err))
			}
			if err := config.Save(cfg, path); err != nil {
				exitErr(errs.New(errs.KindFatalBackend, path, err))
			}
			fmt.Printf("configuration initialized at: %s\n", path)
		},
	})

	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [uri...]",
		Short: "Bundle one or more URI subtrees into an OVPack file",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			pack := service.NewPackService(app.FS)
			data, err := pack.Export(ctx, args)
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, "", err))
			}
			if out == "" {
				fmt.Println(string(data))
				return
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				exitErr(errs.New(errs.KindFatalBackend, out, err))
			}
			color.New(color.FgGreen).Printf("exported %d uri(s) to %s\n", len(args), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [ovpack-file]",
		Short: "Replay an OVPack file's writes into VikingFS",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			app, err := loadApp(ctx)
			if err != nil {
				exitErr(errs.New(errs.KindFatalBackend, "", err))
			}
			defer app.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				exitErr(errs.New(errs.KindInvalidInput, args[0], err))
			}

			pack := service.NewPackService(app.FS)
			if ok, msg, err := pack.Validate(ctx, data); err != nil || !ok {
				if err == nil {
					err = fmt.Errorf("%s", msg)
				}
				exitErr(errs.New(errs.KindInvalidInput, args[0], err))
			}
			if err := pack.Import(ctx, data); err != nil {
				exitErr(err)
			}
			color.New(color.FgGreen).Printf("imported: %s\n", args[0])
		},
	}
	return cmd
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}

// drainScope repeatedly claims and processes messages for scope until
// none remain eligible, so a single CLI invocation exercises the full
// ingest -> semantic pipeline without requiring a separate `serve`
// worker running concurrently.
func drainScope(ctx context.Context, app *viking.App, scope string) {
	for {
		ok, err := app.Processor.ProcessOnce(ctx, scope)
		if err != nil {
			color.New(color.FgYellow).Fprintf(os.Stderr, "semantic processing warning: %v\n", err)
			continue
		}
		if !ok {
			return
		}
	}
}
