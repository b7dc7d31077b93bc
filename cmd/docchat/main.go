// Command docchat is the interactive terminal client: sign in, upload a
// PDF, ask questions against it, and browse past conversations with live
// updates from the shared document store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/bus"
	"docchat/internal/chatlog"
	"docchat/internal/config"
	"docchat/internal/gateway"
	"docchat/internal/idp"
	"docchat/internal/index"
	"docchat/internal/models"
	"docchat/internal/registry"
	"docchat/internal/session"
	"docchat/internal/store"
	"docchat/internal/store/memory"
	"docchat/internal/store/postgres"
)

// app wires the client core together and tracks the live subscriptions
// owned by the two "surfaces" (transcript view, conversation list).
type app struct {
	session  *session.Store
	registry *registry.Registry
	gateway  *gateway.Client
	chatlog  *chatlog.Service
	index    *index.Service
	broker   bus.Broker

	mu        sync.Mutex
	transcSub *chatlog.Subscription
	indexSub  *index.Subscription
	summaries []index.Summary
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		dbCancel()
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v", err)
		}
		defer dbpool.Close()
		st = postgres.NewPostgresStore(dbpool)
	} else {
		log.Println("WARN: DATABASE_URL not set, message history is local to this run.")
		st = memory.NewMemoryStore()
	}

	var broker bus.Broker
	if cfg.NatsURL != "" {
		nb, err := bus.NewNATSBroker(cfg.NatsURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to connect event bus: %v", err)
		}
		defer nb.Close()
		broker = nb
	} else {
		broker = bus.NewProcessBroker()
	}

	sess := session.NewStore(idp.NewClient(cfg.BackendURL))
	a := &app{
		session:  sess,
		registry: registry.New(),
		gateway:  gateway.NewClient(cfg.BackendURL, sess),
		chatlog:  chatlog.NewService(st, sess),
		index:    index.NewService(st, sess),
		broker:   broker,
	}

	// The transcript surface follows conversation switches announced on
	// the bus, the same way the chat window reacted to sidebar clicks.
	unsubSel, err := bus.OnConversationSelected(broker, func(ev bus.ConversationSelected) {
		a.showConversation(ev.ConversationID)
	})
	if err != nil {
		log.Fatalf("FATAL: Unable to subscribe to bus: %v", err)
	}
	defer unsubSel()
	unsubNew, err := bus.OnChatCreated(broker, func() {
		a.closeTranscript()
		fmt.Println("-- started a new conversation --")
	})
	if err != nil {
		log.Fatalf("FATAL: Unable to subscribe to bus: %v", err)
	}
	defer unsubNew()

	fmt.Println("docchat — type 'help' for commands")
	a.repl()
	a.closeTranscript()
	a.closeIndex()
}

func (a *app) repl() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		ctx := context.Background()
		switch cmd {
		case "help":
			fmt.Println("commands: signup <email> <password> | login <email> <password> | logout |")
			fmt.Println("          upload <path> | ask <question> | new | list | select <id> | ids | quit")
		case "signup":
			a.signup(ctx, arg)
		case "login":
			a.login(ctx, arg)
		case "logout":
			a.session.SignOut()
			a.closeTranscript()
			a.closeIndex()
			fmt.Println("signed out")
		case "upload":
			a.upload(ctx, arg)
		case "ask":
			a.ask(ctx, arg)
		case "new":
			a.registry.StartNew()
			if err := bus.PublishChatCreated(a.broker); err != nil {
				log.Printf("bus publish failed: %v", err)
			}
		case "list":
			a.list(ctx)
		case "select":
			if arg == "" {
				fmt.Println("usage: select <conversation-id>")
				continue
			}
			a.registry.Select(arg)
			if err := bus.PublishConversationSelected(a.broker, arg); err != nil {
				log.Printf("bus publish failed: %v", err)
			}
		case "ids":
			ids, err := a.gateway.ChatIDs(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, id := range ids {
				fmt.Println(" ", id)
			}
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

func (a *app) signup(ctx context.Context, arg string) {
	email, password, ok := strings.Cut(arg, " ")
	if !ok {
		fmt.Println("usage: signup <email> <password>")
		return
	}
	if err := a.session.SignUp(ctx, email, password); err != nil {
		fmt.Println("signup failed:", err)
		return
	}
	fmt.Println("account created; use 'login' to sign in")
}

func (a *app) login(ctx context.Context, arg string) {
	email, password, ok := strings.Cut(arg, " ")
	if !ok {
		fmt.Println("usage: login <email> <password>")
		return
	}
	if err := a.session.SignIn(ctx, email, password); err != nil {
		fmt.Println("login failed:", err)
		return
	}
	fmt.Println("signed in as", email)
	a.watchIndex(ctx)
}

func (a *app) upload(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("usage: upload <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer f.Close()

	resp, err := a.gateway.UploadDocument(ctx, filepath.Base(path), f)
	if err != nil {
		fmt.Println("upload failed:", err)
		return
	}
	fmt.Println(resp.Msg)

	// The backend-issued chat id becomes the canonical conversation id.
	a.registry.Select(resp.ChatID)
	if _, err := a.chatlog.RecordSession(ctx, resp.ChatID, filepath.Base(path), "File uploaded successfully"); err != nil {
		log.Printf("failed to record chat session: %v", err)
	}
	if err := bus.PublishConversationSelected(a.broker, resp.ChatID); err != nil {
		log.Printf("bus publish failed: %v", err)
	}
}

func (a *app) ask(ctx context.Context, question string) {
	if question == "" {
		fmt.Println("usage: ask <question>")
		return
	}
	conversationID := a.registry.Current()

	answer, err := a.gateway.Ask(ctx, conversationID, question)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if _, err := a.chatlog.Append(ctx, conversationID, question, answer); err != nil {
		fmt.Println("failed to save message:", err)
		return
	}
	// The transcript subscription prints the updated conversation.
}

func (a *app) list(ctx context.Context) {
	a.mu.Lock()
	summaries := append([]index.Summary(nil), a.summaries...)
	a.mu.Unlock()

	if len(summaries) == 0 {
		fmt.Println("no conversations yet")
		return
	}
	for _, s := range summaries {
		name := s.FileName
		if name == "" {
			name = s.ConversationID
		}
		fmt.Printf("  %s  (%d messages, last %s)\n      %s\n",
			name, s.MessageCount, s.LastActivity.Format(time.RFC822), s.LastMessage)
		fmt.Printf("      id: %s\n", s.ConversationID)
	}
}

// watchIndex keeps the conversation list current in the background.
func (a *app) watchIndex(ctx context.Context) {
	a.closeIndex()

	sub, err := a.index.SubscribeToAll(ctx)
	if err != nil {
		log.Printf("conversation index unavailable: %v", err)
		return
	}
	a.mu.Lock()
	a.indexSub = sub
	a.mu.Unlock()

	go func() {
		for summaries := range sub.Updates() {
			a.mu.Lock()
			a.summaries = summaries
			a.mu.Unlock()
		}
	}()
}

// showConversation re-points the transcript surface at a conversation and
// prints each snapshot the live query delivers.
func (a *app) showConversation(conversationID string) {
	a.closeTranscript()

	sub, err := a.chatlog.SubscribeToConversation(context.Background(), conversationID)
	if err != nil {
		log.Printf("cannot follow conversation %s: %v", conversationID, err)
		return
	}
	a.mu.Lock()
	a.transcSub = sub
	a.mu.Unlock()

	go func() {
		for msgs := range sub.Updates() {
			printTranscript(conversationID, msgs)
		}
	}()
}

func printTranscript(conversationID string, msgs []models.Message) {
	fmt.Printf("\n-- conversation %s --\n", conversationID)
	for _, m := range msgs {
		fmt.Printf("you: %s\n", m.Message)
		fmt.Printf(" ai: %s\n", m.Response)
	}
	fmt.Print("> ")
}

func (a *app) closeTranscript() {
	a.mu.Lock()
	sub := a.transcSub
	a.transcSub = nil
	a.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (a *app) closeIndex() {
	a.mu.Lock()
	sub := a.indexSub
	a.indexSub = nil
	a.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}
