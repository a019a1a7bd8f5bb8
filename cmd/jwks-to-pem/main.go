// Command jwks-to-pem prints the local Supabase ES256 signing key as PEM,
// ready to paste into SUPABASE_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/heic2pdf/backend/internal/util"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:54321/auth/v1/.well-known/jwks.json", "JWKS endpoint")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	pemKey, err := util.JWKSToPEM(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting JWKS: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(pemKey)
}
