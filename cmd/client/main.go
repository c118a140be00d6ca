// Terminal chat client. Connects to the gateway, renders the history
// backlog and live traffic, and sends every stdin line as a chat
// message. Lines starting with "/" go out unchanged; the server decides
// what they mean.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ops-chat/domain"
	"ops-chat/infrastructure/ws"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"ws://localhost:8080/ws"`
	Sender    string `envconfig:"SENDER"`
	// CHAT_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Client terminated with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		cfg.Sender = fmt.Sprintf("guest-%d", os.Getpid())
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.ServerURL, err)
	}
	defer conn.Close()

	header := fmt.Sprintf("  ====== connected to %s as %s ======", cfg.ServerURL, cfg.Sender)
	if cfg.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	done := make(chan error, 1)
	go func() { done <- receive(conn, cfg) }()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			frame := ws.InboundFrame{Type: ws.FrameSendMessage, Sender: cfg.Sender, Text: text}
			if err := conn.WriteJSON(frame); err != nil {
				done <- fmt.Errorf("send failed: %w", err)
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		done <- nil
	}()

	return <-done
}

func receive(conn *websocket.Conn, cfg Config) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		var envelope struct {
			Type     string           `json:"type"`
			Message  ws.WireMessage   `json:"message"`
			Messages []ws.WireMessage `json:"messages"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			continue
		}

		switch envelope.Type {
		case ws.FrameLoadHistory:
			for _, message := range envelope.Messages {
				render(message, cfg.Colours)
			}
		case ws.FrameReceiveMessage:
			render(envelope.Message, cfg.Colours)
		}
	}
}

func render(message ws.WireMessage, colours bool) {
	stamp := time.UnixMilli(message.Timestamp).Local().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s: %s", stamp, message.Sender, message.Text)

	if !colours {
		fmt.Println(line)
		return
	}
	if message.Kind == string(domain.KindSystem) {
		fmt.Println(color.New(color.FgYellow).Render(line))
		return
	}
	fmt.Println(color.New(color.FgCyan).Render(line))
}
