package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(root *rootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the bearer token for a stored-credential profile",
		Long: `Save the bearer token used by stored-credential profiles. Without --token
the first line of stdin is read, which keeps the token out of shell history.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(token) == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return usage("no token given: pass --token or pipe it on stdin")
				}
				token = line
			}
			return root.withConsole(cmd, func(c Console) error {
				if err := c.Login(root.profile, token); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "credential saved")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token to save")
	return cmd
}

func newLogoutCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token of a stored-credential profile",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withConsole(cmd, func(c Console) error {
				if err := c.Logout(root.profile); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "credential removed")
				return nil
			})
		},
	}
}

func newProfilesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured backend profiles",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withConsole(cmd, func(c Console) error {
				list, err := c.Profiles()
				if err != nil {
					return err
				}
				return root.write(cmd, list)
			})
		},
	}
}
