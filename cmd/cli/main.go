// Terminal chat against the same session core the web app uses.
// Handy for poking at a provider without starting the server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"palaver/chat"
	"palaver/config"
	"palaver/provider"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := provider.New(ctx, provider.Options{
		Kind:      cfg.Provider,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		APIKey:    cfg.APIKey(),
		BaseURL:   cfg.OpenAIBaseURL,
	})
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	session := chat.NewSession("cli", prov, cfg.SystemPrompt)

	fmt.Printf("\033[92mConnected to %s (%s)\033[0m\n", prov.Name(), prov.GetModel())
	fmt.Println("\033[90mType 'quit' or 'exit' to end the session\033[0m")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\033[94mYou\033[0m: ")
		if !scanner.Scan() {
			break
		}
		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		if userInput == "quit" || userInput == "exit" {
			fmt.Println("\033[90mGoodbye!\033[0m")
			break
		}

		reply, err := session.Turn(ctx, userInput)
		if err != nil {
			fmt.Printf("\033[91mError\033[0m: %v\n", err)
			continue
		}

		// Replay the finished reply word-by-word, same as the web UI.
		fmt.Print("\033[93mpalaver\033[0m: ")
		for delta := range chat.Typewriter(ctx, reply, cfg.StreamDelay) {
			if delta.Error != nil {
				break
			}
			fmt.Print(delta.Content)
		}
		fmt.Println()
		fmt.Println()
	}
}
