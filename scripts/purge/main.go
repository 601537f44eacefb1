package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/wolfman30/outreach-pipeline/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <admin_id>")
		fmt.Println("Example: go run main.go b25349")
		os.Exit(1)
	}

	adminID := os.Args[1]

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: JWT_SECRET environment variable not set")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	// The API re-checks the admin flag against the directory, so the id
	// must belong to a current admin.
	issuer, err := auth.NewIssuer(secret, time.Hour)
	if err != nil {
		fmt.Printf("Error creating issuer: %v\n", err)
		os.Exit(1)
	}
	tokenString, _, err := issuer.Issue(auth.Member{ID: adminID, Name: "purge-script", IsAdmin: true})
	if err != nil {
		fmt.Printf("Error signing token: %v\n", err)
		os.Exit(1)
	}

	url := apiURL + "/admin/purge-invalid"
	fmt.Printf("Purging placeholder prospects as %s...\n", adminID)
	fmt.Printf("URL: %s\n", url)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: HTTP %d\n", resp.StatusCode)
		fmt.Printf("Response: %s\n", string(body))
		os.Exit(1)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Response: %s\n", string(body))
	} else {
		prettyJSON, _ := json.MarshalIndent(result, "", "  ")
		fmt.Printf("Success!\n%s\n", string(prettyJSON))
	}
}
