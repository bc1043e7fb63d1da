package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sakhihub/sakhi/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := newClient(profile.SocketPath(profileName))

	switch args[0] {
	case "status":
		cmdStatus(c, *jsonFlag)
	case "login":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl login <email> <password>")
			os.Exit(1)
		}
		cmdLogin(c, args[1], args[2], *jsonFlag)
	case "logout":
		c.post("/api/auth/logout", nil, *jsonFlag, nil)
	case "chats":
		cmdChats(c, *jsonFlag)
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl messages <room>")
			os.Exit(1)
		}
		cmdMessages(c, args[1], *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl send <room> <text>")
			os.Exit(1)
		}
		c.post("/api/chat/conversations/"+args[1]+"/messages",
			map[string]string{"text": strings.Join(args[2:], " ")}, *jsonFlag, nil)
	case "join":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl join <room>")
			os.Exit(1)
		}
		c.post("/api/chat/conversations/"+args[1]+"/join", nil, *jsonFlag, nil)
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl search <query>")
			os.Exit(1)
		}
		c.get("/api/chat/search?q="+args[1])
	case "contacts":
		cmdContacts(c, args[1:], *jsonFlag)
	case "sos":
		cmdSOS(c, args[1:], *jsonFlag)
	case "game":
		c.get("/api/game/profile")
	case "predict":
		c.get("/api/health/prediction")
	case "scheme":
		cmdScheme(c, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: sakhictl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                       Show daemon status")
	fmt.Fprintln(os.Stderr, "  login <email> <password>     Log in to the hub")
	fmt.Fprintln(os.Stderr, "  logout                       Log out")
	fmt.Fprintln(os.Stderr, "  chats                        List conversations")
	fmt.Fprintln(os.Stderr, "  messages <room>              Show a conversation")
	fmt.Fprintln(os.Stderr, "  send <room> <text>           Send a message")
	fmt.Fprintln(os.Stderr, "  join <room>                  Join a chat room")
	fmt.Fprintln(os.Stderr, "  search <query>               Search local history")
	fmt.Fprintln(os.Stderr, "  contacts list|add|remove     Manage the safety circle")
	fmt.Fprintln(os.Stderr, "  sos [lat long]               Trigger an SOS alert")
	fmt.Fprintln(os.Stderr, "  game                         Show points and badges")
	fmt.Fprintln(os.Stderr, "  predict                      Show cycle prediction")
	fmt.Fprintln(os.Stderr, "  scheme <name> <age> [income] Check scheme eligibility")
}

// client is a thin HTTP client over the daemon's Unix socket.
type client struct {
	http *http.Client
}

func newClient(socketPath string) *client {
	return &client{http: &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 30 * time.Second,
	}}
}

func (c *client) do(method, path string, body any, out any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	req, err := http.NewRequest(method, "http://daemon"+path, &buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v (is sakhid running?)\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "error: HTTP %d: %s\n", resp.StatusCode, strings.TrimSpace(string(data)))
		os.Exit(1)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	var indented bytes.Buffer
	if json.Indent(&indented, data, "", "  ") == nil {
		fmt.Println(indented.String())
	} else {
		fmt.Println(string(data))
	}
}

// get fetches a path and pretty-prints the JSON response.
func (c *client) get(path string) {
	c.do(http.MethodGet, path, nil, nil)
}

func (c *client) post(path string, body any, jsonOut bool, out any) {
	if out != nil && !jsonOut {
		c.do(http.MethodPost, path, body, out)
		return
	}
	c.do(http.MethodPost, path, body, nil)
}

func cmdStatus(c *client, jsonOut bool) {
	if jsonOut {
		c.get("/api/status")
		return
	}
	var st struct {
		Profile        string `json:"profile"`
		State          string `json:"state"`
		Online         bool   `json:"online"`
		Realtime       string `json:"realtime"`
		LoggedIn       bool   `json:"logged_in"`
		UserID         string `json:"user_id"`
		PendingActions int    `json:"pending_actions"`
		Messages       int    `json:"messages"`
		UptimeMs       int64  `json:"uptime_ms"`
	}
	c.do(http.MethodGet, "/api/status", nil, &st)
	fmt.Printf("Profile:  %s\n", st.Profile)
	fmt.Printf("State:    %s\n", st.State)
	fmt.Printf("Online:   %v\n", st.Online)
	fmt.Printf("Realtime: %s\n", st.Realtime)
	fmt.Printf("Session:  logged_in=%v user=%s\n", st.LoggedIn, st.UserID)
	fmt.Printf("Queue:    %d pending\n", st.PendingActions)
	fmt.Printf("Messages: %d\n", st.Messages)
	fmt.Printf("Uptime:   %dms\n", st.UptimeMs)
}

func cmdLogin(c *client, email, password string, jsonOut bool) {
	if jsonOut {
		c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil)
		return
	}
	var session struct {
		User struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
	}
	c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &session)
	fmt.Printf("Logged in as %s (%s)\n", session.User.Name, session.User.ID)
}

func cmdChats(c *client, jsonOut bool) {
	if jsonOut {
		c.get("/api/chat/conversations")
		return
	}
	var convs []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Preview string `json:"last_message_preview"`
	}
	c.do(http.MethodGet, "/api/chat/conversations", nil, &convs)
	if len(convs) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, conv := range convs {
		fmt.Printf("%-24s %s\n", conv.Title, conv.Preview)
	}
}

func cmdMessages(c *client, room string, jsonOut bool) {
	if jsonOut {
		c.get("/api/chat/conversations/"+room+"/messages")
		return
	}
	var msgs []struct {
		SenderID      string `json:"sender_id"`
		Body          string `json:"body"`
		DeliveryState string `json:"delivery_state"`
		FromMe        bool   `json:"from_me"`
	}
	c.do(http.MethodGet, "/api/chat/conversations/"+room+"/messages", nil, &msgs)
	for _, m := range msgs {
		who := m.SenderID
		if m.FromMe {
			who = "me"
		}
		fmt.Printf("[%s] %s: %s\n", m.DeliveryState, who, m.Body)
	}
}

func cmdContacts(c *client, args []string, jsonOut bool) {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		c.get("/api/safety/contacts")
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl contacts add <name> <phone> [relation]")
			os.Exit(1)
		}
		relation := ""
		if len(args) > 3 {
			relation = args[3]
		}
		c.post("/api/safety/contacts", map[string]string{
			"name": args[1], "phone": args[2], "relation": relation,
		}, jsonOut, nil)
	case "remove":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sakhictl contacts remove <id>")
			os.Exit(1)
		}
		c.do(http.MethodDelete, "/api/safety/contacts/"+args[1], nil, nil)
	default:
		fmt.Fprintf(os.Stderr, "unknown contacts subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdSOS(c *client, args []string, jsonOut bool) {
	body := map[string]any{}
	if len(args) >= 2 {
		lat, latErr := strconv.ParseFloat(args[0], 64)
		long, longErr := strconv.ParseFloat(args[1], 64)
		if latErr != nil || longErr != nil {
			fmt.Fprintln(os.Stderr, "usage: sakhictl sos [lat long]")
			os.Exit(1)
		}
		body["latitude"] = lat
		body["longitude"] = long
	} else {
		body["location_error"] = "location not provided"
	}
	c.post("/api/safety/sos", body, jsonOut, nil)
}

func cmdScheme(c *client, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sakhictl scheme <name> <age> [income] [residence]")
		os.Exit(1)
	}
	age, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: age must be a number")
		os.Exit(1)
	}
	body := map[string]any{"scheme_name": args[0], "age": age}
	if len(args) > 2 {
		if income, err := strconv.ParseFloat(args[2], 64); err == nil {
			body["income"] = income
		}
	}
	if len(args) > 3 {
		body["residence"] = args[3]
	}
	c.do(http.MethodPost, "/api/schemes/check", body, nil)
}
