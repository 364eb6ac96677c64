// Command gwctl is a small client for the blob gateway, exercising
// PUT/GET/DELETE the way aistore's CLI "object" subcommands drive
// aistore's own HTTP surface (cmd/cli/cli/object.go) — rewritten here
// against net/http and this gateway's much smaller surface instead of
// urfave/cli, since the gateway has three verbs, not a full command
// tree.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	gateway := fs.String("gateway", "http://127.0.0.1:8080", "gateway base URL")
	targets := fs.String("targets", "", "comma-separated backend target addresses")
	fs.Parse(os.Args[2:])

	args := fs.Args()
	if len(args) < 1 || *targets == "" {
		usage()
		os.Exit(2)
	}
	chunkID := args[0]
	url := strings.TrimRight(*gateway, "/") + "/chunk/" + chunkID

	req, err := newRequest(cmd, url, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gwctl:", err)
		os.Exit(1)
	}
	for _, t := range strings.Split(*targets, ",") {
		req.Header.Add("X-oio-chunk-meta-target", t)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gwctl:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if cmd == "get" {
		if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
			fmt.Fprintln(os.Stderr, "gwctl:", err)
			os.Exit(1)
		}
	} else {
		body, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "gwctl: %s %s -> %s\n%s\n", cmd, chunkID, resp.Status, body)
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func newRequest(cmd, url string, args []string) (*http.Request, error) {
	switch cmd {
	case "put":
		var body io.Reader = os.Stdin
		if len(args) > 1 {
			f, err := os.Open(args[1])
			if err != nil {
				return nil, err
			}
			body = f
		}
		return http.NewRequest(http.MethodPut, url, body)
	case "get":
		return http.NewRequest(http.MethodGet, url, nil)
	case "delete":
		return http.NewRequest(http.MethodDelete, url, nil)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gwctl <put|get|delete> -targets=host1,host2 [-gateway=url] <chunk-id> [file]

  put <chunk-id> [file]    upload file (or stdin) as chunk-id
  get <chunk-id>           download chunk-id to stdout
  delete <chunk-id>        remove chunk-id`)
}
