// Command token issues an operator access token for a POS terminal.
//
//	go run ./cmd/tools/token -operator till-01 -name "Front desk"
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-pos/internal/auth"
)

func main() {
	_ = godotenv.Load()

	operator := flag.String("operator", "", "operator id placed in the token subject")
	name := flag.String("name", "", "display name of the operator")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	svc, err := auth.NewService(auth.Config{
		Secret:         os.Getenv("JWT_SECRET"),
		AccessTokenTTL: *ttl,
		Issuer:         os.Getenv("JWT_ISSUER"),
		Audience:       os.Getenv("JWT_AUDIENCE"),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tok, err := svc.Issue(auth.Operator{ID: *operator, Name: *name})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Printf("%s\n# expires %s\n", tok.AccessToken, tok.ExpiresAt.Format(time.RFC3339))
}
