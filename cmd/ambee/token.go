package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/breatheroute/ambee/internal/auth"
	"github.com/breatheroute/ambee/internal/config"
)

var errTokenUsage = errors.New("usage: ambee token -sub NAME [-ttl D]")

type issuedToken struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// runToken issues a bearer token for the HTTP API, signed with the
// JWT_* settings the server reads.
func runToken(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("ambee token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	subject := fs.String("sub", "", "token subject, usually the calling service")
	ttl := fs.Duration("ttl", auth.DefaultTokenExpiry, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 || *subject == "" || *ttl <= 0 {
		return errTokenUsage
	}

	cfg := config.JWTConfigFrom(getenv)
	if cfg.SigningKey == config.DevSigningKey {
		fmt.Fprintln(stderr, "ambee: JWT_SIGNING_KEY is unset, signing with the development key")
	}

	token, expiresAt, err := auth.NewJWTService(cfg).GenerateToken(*subject, *ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(issuedToken{Token: token, Subject: *subject, ExpiresAt: expiresAt})
}
