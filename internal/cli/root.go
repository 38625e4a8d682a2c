package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-ops-client/internal/app"
	"github.com/samvad-hq/samvad-ops-client/internal/output"
)

// Console is the part of app.Console the commands drive.
type Console interface {
	Call(ctx context.Context, call app.Call) (json.RawMessage, error)
	Login(profile, token string) error
	Logout(profile string) error
	Profiles() ([]app.ProfileStatus, error)
	Close() error
}

// Factory opens a Console once flags are parsed.
type Factory func(ctx context.Context) (Console, error)

type rootOptions struct {
	profile string
	output  string
	open    Factory
}

// withConsole opens a console, runs fn and closes it.
func (o *rootOptions) withConsole(cmd *cobra.Command, fn func(Console) error) error {
	console, err := o.open(cmd.Context())
	if err != nil {
		return err
	}
	defer console.Close()
	return fn(console)
}

func (o *rootOptions) write(cmd *cobra.Command, v any) error {
	return output.Write(cmd.OutOrStdout(), o.output, v)
}

// NewRootCommand assembles the opsctl command tree.
func NewRootCommand(open Factory, version string) *cobra.Command {
	opts := &rootOptions{open: open}

	root := &cobra.Command{
		Use:   "opsctl",
		Short: "Authenticated JSON calls against the ops and talent backends",
		Long: `opsctl sends JSON requests to a configured backend. Stored-credential
profiles use the token saved by "opsctl login"; token profiles take --token.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			format, err := output.ParseFormat(opts.output)
			if err != nil {
				return &usageError{err: err}
			}
			opts.output = format
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "backend profile (defaults to the first configured profile)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", output.FormatJSON, "output format: json or yaml")

	root.AddCommand(
		newRequestCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newProfilesCommand(opts),
	)
	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usage("%s expects %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usage("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}

func readInput(stdin io.Reader, ref string) ([]byte, error) {
	if ref == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(ref)
	if err != nil {
		return nil, usage("read %s: %v", ref, err)
	}
	return raw, nil
}
