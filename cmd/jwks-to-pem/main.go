// Command jwks-to-pem prints the PEM form of a JWKS signing key, for use as
// JWT_SECRET.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"tutorhub/internal/util"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:54321/auth/v1/.well-known/jwks.json", "JWKS endpoint")
	kid := flag.String("kid", "", "Key id to export (default: first signing key)")
	flag.Parse()

	if err := run(*url, *kid); err != nil {
		fmt.Fprintf(os.Stderr, "jwks-to-pem: %v\n", err)
		os.Exit(1)
	}
}

func run(url, kid string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: unexpected status %s", resp.Status)
	}

	var set util.JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("parse JWKS: %w", err)
	}
	key, err := set.Find(kid)
	if err != nil {
		return err
	}
	pemKey, err := key.PEM()
	if err != nil {
		return err
	}
	fmt.Print(pemKey)
	return nil
}
