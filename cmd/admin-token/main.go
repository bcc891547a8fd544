package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/forgo/cityquest/internal/service"
	"github.com/forgo/cityquest/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Flags for customization
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret (default: $JWT_SECRET)")
	username := flag.String("user", "admin", "Admin username for the token subject")
	issuer := flag.String("issuer", "cityquest.forgo.software", "JWT issuer")
	expMins := flag.Int("exp", 60*24*7, "Token expiration in minutes (default: 7 days)")
	hash := flag.String("hash", "", "Print the bcrypt hash of this password for ADMIN_PASSWORD_HASH and exit")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	if *hash != "" {
		out, err := bcrypt.GenerateFromPassword([]byte(*hash), service.BcryptCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	jwtService, err := jwt.NewService(jwt.Config{
		Secret:         *secret,
		Issuer:         *issuer,
		ExpirationMins: *expMins,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating JWT service: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nPass -secret or export JWT_SECRET (at least 32 characters)\n")
		os.Exit(1)
	}

	subject := service.AdminSubject(*username)
	token, expiresAt, err := jwtService.Issue(subject, "", jwt.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		output := map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_at":   expiresAt,
			"user_id":      subject,
			"role":         jwt.RoleAdmin,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	fmt.Println("Admin Token Generated")
	fmt.Println("=====================")
	fmt.Printf("Subject:  %s\n", subject)
	fmt.Printf("Role:     %s\n", jwt.RoleAdmin)
	fmt.Printf("Expires:  %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:8080/v1/admin/users\n", token)
}
