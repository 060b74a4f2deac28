package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"formbridge/internal/bridge"
	"formbridge/internal/cache"
	"formbridge/internal/config"
	"formbridge/internal/model"
	"formbridge/internal/service"
)

// Terminal chat client. Fetches a published form from the API, then
// fills it conversationally through the NLP service. The server
// receives the answers through the NLP callback, so this client never
// posts a response itself.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: chat <formId>")
		os.Exit(1)
	}
	formID := os.Args[1]

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	ctx := context.Background()

	form, err := fetchForm(ctx, apiURL, formID)
	if err != nil {
		log.Fatalf("Failed to fetch form: %v", err)
	}
	if !form.ChatConfig.Enabled || !form.UseNlpChat {
		log.Fatalf("Form %s does not have conversational filling enabled", formID)
	}

	nlp := service.NewNLPClient(config.DefaultNLPConfig())

	opts := bridge.Options{}
	if addr := os.Getenv("REDIS_URI"); addr != "" {
		if strings.HasPrefix(addr, "redis://") {
			addr = addr[8:]
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		opts.Cache = cache.NewSessionCache(rdb)
	}

	session, err := bridge.NewSession(form, nlp, opts)
	if err != nil {
		log.Fatalf("Failed to create chat session: %v", err)
	}

	fmt.Printf("=== %s ===\n", form.Title)
	if form.Description != "" {
		fmt.Println(form.Description)
	}
	fmt.Println()

	first, err := session.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start chat session: %v", err)
	}
	fmt.Printf("bot> %s\n", first)

	scanner := bufio.NewScanner(os.Stdin)
	for !session.Done() {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := session.SendText(ctx, text)
		if err != nil {
			log.Printf("Turn failed: %v", err)
			continue
		}
		fmt.Printf("bot> %s\n", reply)
	}

	if session.Done() {
		fmt.Println("\nAll done, your answers were submitted.")
	}
}

// fetchForm reads the form through the public API. Published forms
// need no token.
func fetchForm(ctx context.Context, apiURL, formID string) (*model.Form, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/v1/forms/"+formID, nil)
	if err != nil {
		return nil, err
	}
	if token := os.Getenv("API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /v1/forms/%s returned %d", formID, resp.StatusCode)
	}

	var form model.Form
	if err := json.NewDecoder(resp.Body).Decode(&form); err != nil {
		return nil, err
	}
	return &form, nil
}
