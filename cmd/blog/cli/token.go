package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aqanja/blog-api/internal/auth"
	"github.com/aqanja/blog-api/internal/shared"
)

// TokenOptions defines the flags of the token command.
type TokenOptions struct {
	Secret   string
	TTL      time.Duration
	UserID   int64
	Username string
	Admin    bool
	Stdout   io.Writer
	Stderr   io.Writer
}

// TokenCommand mints a signed credential for local development and prints it.
func TokenCommand(opts TokenOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Secret) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "token: JWT_SECRET is required")
		return 1
	}
	if opts.UserID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "token: --id is required and must be positive")
		return 1
	}
	tokens := auth.NewTokenService(opts.Secret, opts.TTL)
	token, err := tokens.Issue(shared.Principal{ID: opts.UserID, Username: opts.Username, IsAdmin: opts.Admin})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "token: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(opts.Stdout, token)
	return 0
}
