package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudiagent/cloudiagent/internal/agent"
	"github.com/cloudiagent/cloudiagent/internal/config"
	"github.com/cloudiagent/cloudiagent/internal/server"
	"github.com/cloudiagent/cloudiagent/internal/tools"
	"github.com/cloudiagent/cloudiagent/internal/tui"
	"github.com/cloudiagent/cloudiagent/internal/wiring"
)

var (
	listenAddr string

	dispatchThread string
	dispatchAsset  string
	dispatchJSON   bool

	toolsJSON bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP JSON API",
	Long: `Serves:
  GET  /health         component health
  POST /api/dispatch   {prompt, threadId?, publicId?} -> {threadId, text | toolResult}
  GET  /api/tools      tool catalogue
  GET  /api/tags       ?publicId= existing + detected tags
  POST /api/explain    {descriptor | url} -> human-readable steps`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		app, err := wiring.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := &server.Server{
			Addr:       cfg.ListenAddr,
			Dispatcher: app.Dispatcher,
			Tools:      app.Tools,
			Health:     app.Health,
			Log:        logger.Named("server"),
		}
		if app.Cloudinary != nil {
			srv.Resources = app.Cloudinary
		}
		logger.Info("starting server", zap.String("addr", cfg.ListenAddr), zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
		return srv.Run(ctx)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the console (one thread per session)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := wiring.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return tui.RunChat(ctx, app.Dispatcher, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [prompt]",
	Short: "Send one message and print the reply",
	Long: `Sends one message. Pass --thread to continue a conversation; the thread id
is printed to stderr. Exit status: 2 empty prompt or invalid request,
3 unknown thread, 4 invalid tool call, 5 rate limited, 6 unauthorized, 1 other.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := wiring.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Dispatcher.Dispatch(ctx, agent.Request{
			Prompt:   strings.Join(args, " "),
			ThreadID: dispatchThread,
			AssetID:  dispatchAsset,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dispatchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "thread:", res.ThreadID)
		fmt.Fprintln(out, tui.Render(res))
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := tools.Default()
		out := cmd.OutOrStdout()
		if toolsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reg.Definitions())
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tSUMMARY\tDESCRIPTION")
		for _, c := range reg.Capabilities() {
			spec, _ := reg.Lookup(c.Kind)
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Kind, c.Summary, spec.Description)
		}
		return w.Flush()
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <descriptor|url>",
	Short: "Explain a transformation descriptor or delivery URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := strings.TrimSpace(args[0])
		var res *server.ExplainResult
		var err error
		if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
			res, err = server.Explain("", in)
		} else {
			res, err = server.Explain(in, "")
		}
		if err != nil {
			return err
		}
		if res.PublicID != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "asset:", res.PublicID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Explanation)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write provider and Cloudinary credentials to config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New(configDir)
		if err != nil {
			return err
		}
		return tui.RunFirstBoot(cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default $CLOUDIAGENT_LISTEN_ADDR or :8080)")

	dispatchCmd.Flags().StringVar(&dispatchThread, "thread", "", "continue this thread")
	dispatchCmd.Flags().StringVar(&dispatchAsset, "asset", "", "public id of an uploaded image to attach")
	dispatchCmd.Flags().BoolVar(&dispatchJSON, "json", false, "print the result envelope as JSON")

	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print the function-calling definitions as JSON")
}
