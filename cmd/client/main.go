package main

import (
	"flag"
	"log"

	"chathub/internal/client"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	host := flag.String("host", "localhost:8080", "server address")
	channel := flag.String("channel", "", "channel id to join")
	token := flag.String("token", "", "bearer token from /api/auth/login")
	flag.Parse()

	if *channel == "" || *token == "" {
		log.Fatal("both -channel and -token are required")
	}

	ws, err := client.Dial(*host, *channel, *token)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	p := tea.NewProgram(client.NewModel(ws))
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
