package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// console holds the session state for the interactive loop.
type console struct {
	base   string
	client *http.Client
}

func runConsole(addr string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "satctl> ",
		HistoryFile:     os.TempDir() + "/satctl_history",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	c := &console{
		base:   strings.TrimRight(addr, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}

	printHelp()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil { // io.EOF on ^D
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			printHelp()

		case "status":
			c.get("/v1/status")

		case "enable":
			demo := len(args) > 0 && strings.EqualFold(args[0], "demo")
			c.post("/v1/enable", map[string]any{"enable": true, "demo": demo})

		case "disable":
			c.post("/v1/enable", map[string]any{"enable": false})

		case "supported":
			c.get("/v1/supported")

		case "enabled":
			c.get("/v1/enabled")

		case "provisioned":
			c.get("/v1/provisioned")

		case "capabilities", "caps":
			c.get("/v1/capabilities")

		case "visibility", "vis":
			c.get("/v1/visibility")

		case "provision":
			if len(args) < 2 {
				fmt.Println("usage: provision <sub-id> <token>")
				continue
			}
			subID, ok := parseSubID(args[0])
			if !ok {
				continue
			}
			c.post("/v1/provision", map[string]any{"subscription_id": subID, "token": args[1]})

		case "deprovision":
			if len(args) < 2 {
				fmt.Println("usage: deprovision <sub-id> <token>")
				continue
			}
			subID, ok := parseSubID(args[0])
			if !ok {
				continue
			}
			c.post("/v1/deprovision", map[string]any{"subscription_id": subID, "token": args[1]})

		case "restrict":
			if len(args) < 2 {
				fmt.Println("usage: restrict <sub-id> <user|geolocation|entitlement>")
				continue
			}
			c.do(http.MethodPut, fmt.Sprintf("/v1/subscriptions/%s/restrictions/%s", args[0], args[1]), nil)

		case "unrestrict":
			if len(args) < 2 {
				fmt.Println("usage: unrestrict <sub-id> <user|geolocation|entitlement>")
				continue
			}
			c.do(http.MethodDelete, fmt.Sprintf("/v1/subscriptions/%s/restrictions/%s", args[0], args[1]), nil)

		case "restrictions":
			if len(args) < 1 {
				fmt.Println("usage: restrictions <sub-id>")
				continue
			}
			c.get("/v1/subscriptions/" + args[0] + "/restrictions")

		case "carrier":
			if len(args) < 2 {
				fmt.Println("usage: carrier <sub-id> <on|off>")
				continue
			}
			c.do(http.MethodPut, "/v1/subscriptions/"+args[0]+"/carrier",
				map[string]any{"supported": strings.EqualFold(args[1], "on")})

		case "send":
			if len(args) < 2 {
				fmt.Println("usage: send <sos|location> <text>")
				continue
			}
			dgType := "LOCATION_SHARING"
			if strings.EqualFold(args[0], "sos") {
				dgType = "SOS"
			}
			payload := []byte(strings.Join(args[1:], " "))
			c.post("/v1/datagrams", map[string]any{"type": dgType, "payload": payload})

		case "poll":
			c.post("/v1/datagrams/poll", map[string]any{})

		case "quit", "exit", "q":
			return nil

		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func parseSubID(s string) (int64, bool) {
	subID, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Printf("invalid subscription id %q\n", s)
		return 0, false
	}
	return subID, true
}

func (c *console) get(path string) {
	resp, err := c.client.Get(c.base + path)
	c.report(resp, err)
}

func (c *console) post(path string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	resp, err := c.client.Post(c.base+path, "application/json", bytes.NewReader(data))
	c.report(resp, err)
}

func (c *console) do(method, path string, body any) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	c.report(resp, err)
}

// report pretty-prints the daemon response.
func (c *console) report(resp *http.Response, err error) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Printf("[%d]\n%s\n", resp.StatusCode, pretty.String())
		return
	}
	fmt.Printf("[%d] %s\n", resp.StatusCode, strings.TrimSpace(string(data)))
}

func printHelp() {
	fmt.Println(`satctl commands:
  Status:
    status                      - controller snapshot
    supported | enabled | provisioned
    capabilities                - modem capability set
    visibility                  - communication window info

  Session:
    enable [demo]               - turn satellite mode on
    disable                     - turn satellite mode off

  Provisioning:
    provision <sub-id> <token>
    deprovision <sub-id> <token>

  Carrier attach:
    carrier <sub-id> <on|off>   - set carrier support
    restrict <sub-id> <reason>  - add attach restriction
    unrestrict <sub-id> <reason>
    restrictions <sub-id>       - list active restrictions

  Datagrams:
    send <sos|location> <text>
    poll                        - deliver queued inbound datagrams

  General:
    help | quit`)
}
