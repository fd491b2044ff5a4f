// Copyright (c) The agui-client-go authors. All rights reserved.

// Command chat demonstrates a multi-turn conversation against an AG-UI
// agent endpoint.
//
// It works with API-key endpoints and Azure AD protected ones.
//
// Usage with an API key:
//
//	export AGUI_ENDPOINT=https://agent.example.com/awp
//	export AGUI_API_KEY=<your-key>
//	go run .
//
// Usage with Azure AD:
//
//	export AGUI_ENDPOINT=https://agent.example.com/awp
//	export AGUI_AZURE_SCOPE=https://cognitiveservices.azure.com/.default
//	go run .
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
	"github.com/raphaelmansuy/agui-client-go/sse"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	// Enable debug logging if requested
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	endpoint := os.Getenv("AGUI_ENDPOINT")
	if endpoint == "" {
		log.Fatal("AGUI_ENDPOINT is required")
	}
	client := newClient(endpoint)

	session := agui.OpenSession("", agui.WithTransport(client))
	fmt.Println("Connected. Type a message, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		if err := runTurn(context.Background(), session, text); err != nil {
			log.Printf("turn failed: %v", err)
		}
	}
}

func newClient(endpoint string) *sse.Client {
	if scope := os.Getenv("AGUI_AZURE_SCOPE"); scope != "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			log.Fatalf("azure credential: %v", err)
		}
		return sse.New(endpoint, sse.WithTokenCredential(cred, scope))
	}
	key := os.Getenv("AGUI_API_KEY")
	if key == "" {
		log.Fatal("set AGUI_API_KEY or AGUI_AZURE_SCOPE")
	}
	return sse.New(endpoint, sse.WithAPIKey(key))
}

func runTurn(ctx context.Context, session *agui.Session, text string) error {
	stream, err := session.SendMessage(ctx, text)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Print("Agent: ")
	for {
		update, ok, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println()
			return nil
		}
		switch u := update.(type) {
		case agui.TextUpdate:
			fmt.Print(u.Delta)
		case agui.ToolUpdate:
			fmt.Printf("\n  [tool %s: %s]\n", u.Name, u.Status)
		case agui.RunFailedUpdate:
			fmt.Printf("\n  [run failed: %s (%s)]\n", u.Message, u.Code)
		}
	}
}
