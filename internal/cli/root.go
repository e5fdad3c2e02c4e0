// Package cli implements evidencectl, the operator command line for evidence
// containers. It talks to the evidence service and blob storage directly,
// without the session gateway.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"evidence-explorer/internal/backend"
	"evidence-explorer/internal/blob"
	"evidence-explorer/internal/logger"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// globalOptions are the persistent flags shared by every command. Each falls
// back to an EVIDENCE_* environment variable, optionally read from .env.
type globalOptions struct {
	backendURL string
	token      string
	container  string
	timeout    time.Duration
	retryMax   int
	verbose    bool

	client    *backend.Client
	transport *blob.Transport
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "evidencectl",
		Short: "Browse and manage evidence containers",
		Long: `evidencectl lists, uploads, deletes and annotates files in an evidence
container. Authorization is decided by the evidence service using your
bearer token.

Environment:
  EVIDENCE_BACKEND_URL  evidence service base URL (--backend)
  EVIDENCE_TOKEN        bearer token (--token); prompted for when unset
  EVIDENCE_CONTAINER    default container (--container)`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backendURL, "backend", "", "Evidence service base URL")
	flags.StringVar(&opts.token, "token", "", "Bearer token")
	flags.StringVarP(&opts.container, "container", "c", "", "Container to operate on")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout of each backend call")
	flags.IntVar(&opts.retryMax, "retries", 3, "Retries of failed backend calls")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log backend calls")

	rootCmd.AddCommand(newLsCmd(opts))
	rootCmd.AddCommand(newUploadCmd(opts))
	rootCmd.AddCommand(newRmCmd(opts))
	rootCmd.AddCommand(newMetaCmd(opts))
	rootCmd.AddCommand(newPreviewCmd(opts))

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *globalOptions) init(cmd *cobra.Command) error {
	_ = godotenv.Load()

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logger.NewPrettyHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	o.backendURL = strings.TrimRight(firstNonEmpty(o.backendURL, os.Getenv("EVIDENCE_BACKEND_URL")), "/")
	o.container = firstNonEmpty(o.container, os.Getenv("EVIDENCE_CONTAINER"))
	o.token = firstNonEmpty(o.token, os.Getenv("EVIDENCE_TOKEN"))

	if o.backendURL == "" {
		return fmt.Errorf("--backend or EVIDENCE_BACKEND_URL is required")
	}
	if o.container == "" {
		return fmt.Errorf("--container or EVIDENCE_CONTAINER is required")
	}

	if o.token == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		token, err := readToken(cmd)
		if err != nil {
			return err
		}
		o.token = token
	}

	o.client = backend.NewClient(backend.Options{
		BaseURL:  o.backendURL,
		Timeout:  o.timeout,
		RetryMax: o.retryMax,
		Logger:   slog.Default(),
	})
	o.transport = blob.NewTransport(azcore.ClientOptions{})

	return nil
}

// callContext carries the bearer token to every backend call of the command.
func (o *globalOptions) callContext(cmd *cobra.Command) context.Context {
	return backend.ContextWithToken(cmd.Context(), o.token)
}

func readToken(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Bearer token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	return strings.TrimSpace(string(raw)), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
