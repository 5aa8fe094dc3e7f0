// Command mint-token issues a signed bearer token for a notification bridge.
//
// The bridge (the voice front end's delivery side) authenticates every
// command with a long-lived token minted at deploy time; this tool mints
// one against the configured JWT secret.
//
// Usage:
//
//	# Ensure .env is loaded so JWT_SECRET matches the running server
//	set -a && source .env && set +a && go run ./cmd/mint-token -sub alexa -bridge lambda
//
//	# Shorter-lived token for testing
//	go run ./cmd/mint-token -sub dev -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jmcneish/castbridge/internal/auth"
	"github.com/jmcneish/castbridge/internal/config"
)

func main() {
	sub := flag.String("sub", "", "token subject (required)")
	bridge := flag.String("bridge", "", "bridge name recorded in the token")
	ttl := flag.Duration("ttl", 365*24*time.Hour, "token lifetime")
	flag.Parse()

	if *sub == "" {
		log.Fatal("Mint Token: -sub is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.GenerateToken(cfg, auth.TokenPayload{
		Sub:        *sub,
		BridgeName: *bridge,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	log.Printf("Mint Token: issued for %s, expires %s", *sub, time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println(token)
}
