package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/diogocavaiar/session-android/internal/api"
	"github.com/diogocavaiar/session-android/internal/lock"
	"github.com/diogocavaiar/session-android/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	holder, err := lock.Read(session.LockPath(sessionName))
	if err == nil && holder == nil {
		fmt.Fprintf(os.Stderr, "error: no daemon running for session %q (start it with sessiond)\n", sessionName)
		os.Exit(1)
	}

	socketPath := session.SocketPath(sessionName)
	c, err := api.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(c, args[1:])
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, holder, *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: sessionctl send <recipient> <text>")
			os.Exit(1)
		}
		if err := session.ValidateRecipient(args[1]); err != nil {
			fatal(err)
		}
		cmdSend(ctx, c, args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "outbox":
		if len(args) < 3 || args[1] != "get" {
			fmt.Fprintln(os.Stderr, "usage: sessionctl outbox get <client_msg_id>")
			os.Exit(1)
		}
		cmdOutboxGet(ctx, c, args[2], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: sessionctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                  Show daemon status")
	fmt.Fprintln(os.Stderr, "  send <recipient> <text>  Queue a text message")
	fmt.Fprintln(os.Stderr, "  outbox get <id>         Show a queued message")
	fmt.Fprintln(os.Stderr, "  watch [namespace]       Stream daemon events")
}

func cmdStatus(ctx context.Context, c *api.Client, holder *lock.Holder, jsonOut bool) {
	resp, err := c.GetStatus(ctx)
	if err != nil {
		fatal(err)
	}
	if holder != nil {
		resp["pid"] = holder.PID
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Session: %v\n", resp["session"])
	fmt.Printf("State:   %v\n", resp["state"])
	fmt.Printf("Uptime:  %vms\n", resp["uptime_ms"])
	if holder != nil {
		fmt.Printf("PID:     %d\n", holder.PID)
	}
}

func cmdSend(ctx context.Context, c *api.Client, recipient, text string, jsonOut bool) {
	id, err := c.SendText(ctx, recipient, text)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(map[string]string{"client_msg_id": id})
		return
	}
	fmt.Printf("Queued: %s\n", id)
}

func cmdOutboxGet(ctx context.Context, c *api.Client, id string, jsonOut bool) {
	entry, err := c.GetOutboxEntry(ctx, id)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(entry)
		return
	}
	fmt.Printf("Recipient: %v\n", entry["recipient"])
	fmt.Printf("Status:    %v\n", entry["status"])
	if kind, _ := entry["result_kind"].(string); kind != "" {
		fmt.Printf("Result:    %s\n", kind)
	}
	if msg, _ := entry["error"].(string); msg != "" {
		fmt.Printf("Error:     %s\n", msg)
	}
}

func cmdWatch(c *api.Client, args []string) {
	namespace := ""
	if len(args) > 0 {
		namespace = args[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := c.WatchEvents(ctx, namespace, func(evt map[string]any) {
		outputJSON(evt)
	})
	if err != nil && ctx.Err() == nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
