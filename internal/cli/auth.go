package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/provider"
)

// tokenKinds are the providers that take a personal access token.
var tokenKinds = []provider.Kind{provider.KindGitHub, provider.KindAzure, provider.KindGit}

// keyringStore is swapped in tests.
var keyringStore = provider.NewKeyringCredentials()

var authToken string

func init() {
	authSetCmd.Flags().StringVar(&authToken, "token", "", "Token value (read from stdin when omitted)")
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider access tokens",
	Long: `Store personal access tokens in the OS keyring. Environment variables such as
PROMPTITUDE_GITHUB_TOKEN or GITHUB_TOKEN take precedence over stored tokens.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <github|azure|git>",
	Short: "Store a token for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		token := strings.TrimSpace(authToken)
		if token == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Paste the %s token and press Enter: ", kind)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading token: %w", err)
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return errors.New("empty token")
		}
		if err := keyringStore.SetToken(kind, token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s token in the OS keyring\n", kind)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where each provider's token comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, kind := range tokenKinds {
			fmt.Fprintf(w, "%-7s %s\n", kind, tokenSource(kind))
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <github|azure|git>",
	Short: "Delete a stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		if err := keyringStore.DeleteToken(kind); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed stored %s token\n", kind)
		if _, err := (provider.EnvCredentials{}).Token(kind); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Note: a %s token is still set in the environment\n", kind)
		}
		return nil
	},
}

func parseKind(s string) (provider.Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range tokenKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (expected github, azure or git)", s)
}

func tokenSource(kind provider.Kind) string {
	if v := os.Getenv(provider.EnvTokenVar(kind)); v != "" {
		return "environment (" + provider.EnvTokenVar(kind) + ")"
	}
	if _, err := (provider.EnvCredentials{}).Token(kind); err == nil {
		return "environment"
	}
	_, err := keyringStore.Token(kind)
	switch {
	case err == nil:
		return "OS keyring"
	case errors.Is(err, provider.ErrNoToken):
		return "not configured"
	default:
		return "keyring unavailable: " + err.Error()
	}
}
