// sctl drives the registry HTTP API from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const usage = `usage:
  sctl project create --class FUNGIBLE|NON_FUNGIBLE|SEMI_FUNGIBLE
  sctl project get --id <project_id>
  sctl token get --id <token_id>
  sctl token lock --id <token_id> --ceiling <n>
  sctl mint new --project <id> --to <account> --amount <n> [--ceiling <n>] [--locked] [--metadata <hex64>]
  sctl mint existing --id <token_id> --to <account> --amount <n>
  sctl burn --from <account> --id <token_id> --amount <n>

environment:
  REGISTRY_API    base URL (default http://localhost:8085)
  REGISTRY_TOKEN  bearer token for mutating calls`

type client struct {
	base  string
	token string
}

func newClient() client {
	base := os.Getenv("REGISTRY_API")
	if base == "" {
		base = "http://localhost:8085"
	}
	return client{base: strings.TrimRight(base, "/"), token: os.Getenv("REGISTRY_TOKEN")}
}

func main() {
	if len(os.Args) < 2 {
		fail(usage)
	}
	c := newClient()
	switch os.Args[1] {
	case "project":
		runProject(c, os.Args[2:])
	case "token":
		runToken(c, os.Args[2:])
	case "mint":
		runMint(c, os.Args[2:])
	case "burn":
		runBurn(c, os.Args[2:])
	default:
		fail(usage)
	}
}

func runProject(c client, args []string) {
	if len(args) < 1 {
		fail(usage)
	}
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("project create", flag.ExitOnError)
		class := fs.String("class", "", "asset class")
		parse(fs, args[1:])
		c.call("POST", "/projects", map[string]any{"asset_class": *class})
	case "get":
		fs := flag.NewFlagSet("project get", flag.ExitOnError)
		id := fs.Uint64("id", 0, "project id")
		parse(fs, args[1:])
		c.call("GET", fmt.Sprintf("/projects/%d", *id), nil)
	default:
		fail(usage)
	}
}

func runToken(c client, args []string) {
	if len(args) < 1 {
		fail(usage)
	}
	switch args[0] {
	case "get":
		fs := flag.NewFlagSet("token get", flag.ExitOnError)
		id := fs.Uint64("id", 0, "token id")
		parse(fs, args[1:])
		c.call("GET", fmt.Sprintf("/tokens/%d", *id), nil)
	case "lock":
		fs := flag.NewFlagSet("token lock", flag.ExitOnError)
		id := fs.Uint64("id", 0, "token id")
		ceiling := fs.Uint64("ceiling", 0, "supply ceiling")
		parse(fs, args[1:])
		c.call("POST", fmt.Sprintf("/tokens/%d/lock", *id), map[string]any{"ceiling": *ceiling})
	default:
		fail(usage)
	}
}

func runMint(c client, args []string) {
	if len(args) < 1 {
		fail(usage)
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("mint new", flag.ExitOnError)
		project := fs.Uint64("project", 0, "project id")
		to := fs.String("to", "", "recipient account")
		amount := fs.Uint64("amount", 0, "units to mint")
		ceiling := fs.Uint64("ceiling", 0, "supply ceiling")
		locked := fs.Bool("locked", false, "lock the ceiling at creation")
		metadata := fs.String("metadata", strings.Repeat("00", 32), "32-byte metadata digest, hex")
		parse(fs, args[1:])
		c.call("POST", "/mint", map[string]any{
			"project_id":    *project,
			"to":            *to,
			"amount":        *amount,
			"ceiling":       *ceiling,
			"locked":        *locked,
			"metadata_hash": *metadata,
		})
	case "existing":
		fs := flag.NewFlagSet("mint existing", flag.ExitOnError)
		id := fs.Uint64("id", 0, "token id")
		to := fs.String("to", "", "recipient account")
		amount := fs.Uint64("amount", 0, "units to mint")
		parse(fs, args[1:])
		c.call("POST", fmt.Sprintf("/tokens/%d/mint", *id), map[string]any{"to": *to, "amount": *amount})
	default:
		fail(usage)
	}
}

func runBurn(c client, args []string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	from := fs.String("from", "", "holder account")
	id := fs.Uint64("id", 0, "token id")
	amount := fs.Uint64("amount", 0, "units to burn")
	parse(fs, args)
	c.call("POST", "/burn", map[string]any{"from": *from, "token_id": *id, "amount": *amount})
}

func parse(fs *flag.FlagSet, args []string) {
	fs.SetOutput(os.Stderr)
	_ = fs.Parse(args)
}

func (c client) call(method, path string, body any) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fail("encode request: " + err.Error())
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		fail("build request: " + err.Error())
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("request failed: " + err.Error())
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fail("read response: " + err.Error())
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
