package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/config"
	"github.com/agenda-distribuida/events-web/internal/session"
)

// IssueToken handles the issue-token subcommand. It prints a session token for
// a user so the pages can be exercised without the auth service.
func IssueToken(args []string) {
	if err := issueToken(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func issueToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	userID := fs.String("user", "", "User id the token is issued for")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: events-web issue-token -user ID\n\n")
		fmt.Fprintf(fs.Output(), "Prints an HS256 session token signed with JWT_SECRET.\n\n")
		fmt.Fprintf(fs.Output(), "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		fs.Usage()
		return fmt.Errorf("user cannot be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	guard := session.NewGuard(cfg.JWT.Secret, cfg.Session.CookieName, cfg.Session.TTL, zap.NewNop())
	token, err := guard.Issue(*userID)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Fprintln(out, token)
	return nil
}
