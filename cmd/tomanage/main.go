package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"tomanage/internal/app"
	"tomanage/internal/config"
)

// @title                       tomanage API
// @version                     1.0
// @description                 Task enrichment, TickTick sync and recommendations.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "tomanage",
		Short:   "Task enrichment, TickTick sync and recommendations",
		Version: app.Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(mcpCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))
	rootCmd.AddCommand(syncCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(*configPath)
		},
	}
}

func mcpCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			// stdout carries the protocol
			log.SetOutput(os.Stderr)
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				return a.MCPServer(user).ServeStdio()
			})
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id the tools act for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				token, err := a.IssueToken(user, ttl)
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id (token subject)")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func syncCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync a user's tasks with TickTick once",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				res, err := a.Sync.Sync(ctx, user)
				if err != nil {
					return err
				}
				out := json.NewEncoder(os.Stdout)
				out.SetIndent("", "  ")
				return out.Encode(map[string]any{
					"fetched":  res.Fetched,
					"tasks":    len(res.Tasks),
					"lastSync": res.LastSync,
				})
			})
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id to sync")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func withApp(configPath string, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Printf("[cli][close][err] %v", err)
		}
	}()
	return fn(ctx, a)
}
