// Command bl is a CLI client for the bucketlist API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username,omitempty"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "bucketlist")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bucketlist")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.New("not logged in (run: bl login)")
		}
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func removeToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s %q", what, s)
	}
	return id, nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `bl - bucketlist CLI
Usage:
  bl [-addr URL] <cmd> [args]

Commands:
  version
  register   -u <username> [-p <password>]        (saves token)
  login      -u <username> [-p <password>]        (saves token)
  logout
  lists      [-q text] [-page N] [-limit N]
  show       <id>
  create     [-public] <name>
  rename     <id> <name>
  publish    <id> true|false
  delete     <id>
  items      <id>
  add        <id> <name>
  done       <id> <item_id> [true|false]
  rm         <id> <item_id>
`)
}

var errUsage = errors.New("usage")

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		fail(err)
	}
}

// run parses global flags and executes one command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	gfs := flag.NewFlagSet("bl", flag.ContinueOnError)
	gfs.SetOutput(stderr)
	addr := gfs.String("addr", envOr("BUCKETLIST_URL", "http://localhost:8080"), "API base URL")
	gfs.Usage = func() { usage(stderr) }
	if err := gfs.Parse(args); err != nil {
		return errUsage
	}
	if gfs.NArg() < 1 {
		return errUsage
	}
	cmd, rest := gfs.Arg(0), gfs.Args()[1:]
	api := newClient(*addr)

	authed := func() error {
		tok, err := loadToken()
		if err != nil {
			return err
		}
		api.token = tok
		return nil
	}

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "bl %s (%s)\n", version, buildDate)
		return nil

	case "register", "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(stderr)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if *u == "" {
			return errors.New("need -u")
		}
		if *p == "" {
			pw, err := promptPassword(stderr)
			if err != nil {
				return err
			}
			*p = pw
		}
		auth := api.Login
		if cmd == "register" {
			auth = api.Register
		}
		tok, err := auth(ctx, *u, *p)
		if err != nil {
			return err
		}
		if err := saveToken(tokenFile{AccessToken: tok.Token, ExpiresAt: tok.ExpiresAt, Username: tok.User.Username}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "ok: %s (token valid until %s)\n", tok.User.Username, tok.ExpiresAt.Local().Format(time.RFC3339))
		return nil

	case "logout":
		if err := removeToken(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "lists":
		fs := flag.NewFlagSet("lists", flag.ContinueOnError)
		fs.SetOutput(stderr)
		q := fs.String("q", "", "name contains")
		page := fs.Int("page", 0, "page number")
		limit := fs.Int("limit", 0, "page size")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if err := authed(); err != nil {
			return err
		}
		p, err := api.ListBucketlists(ctx, *q, *page, *limit)
		if err != nil {
			return err
		}
		printJSON(stdout, p)
		return nil

	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(stderr)
		public := fs.Bool("public", false, "make the bucketlist public")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		if fs.NArg() < 1 {
			return errUsage
		}
		if err := authed(); err != nil {
			return err
		}
		b, err := api.CreateBucketlist(ctx, strings.Join(fs.Args(), " "), *public)
		if err != nil {
			return err
		}
		printJSON(stdout, b)
		return nil
	}

	return runByID(ctx, api, cmd, rest, stdout, authed)
}

// runByID handles the commands addressing an existing bucketlist.
func runByID(ctx context.Context, api *client, cmd string, rest []string, stdout io.Writer, authed func() error) error {
	need := map[string]int{
		"show": 1, "delete": 1, "items": 1,
		"rename": 2, "publish": 2, "add": 2, "rm": 2, "done": 2,
	}
	n, known := need[cmd]
	if !known || len(rest) < n {
		return errUsage
	}
	id, err := parseID(rest[0], "bucketlist id")
	if err != nil {
		return err
	}
	if err := authed(); err != nil {
		return err
	}

	switch cmd {
	case "show":
		b, err := api.GetBucketlist(ctx, id)
		if err != nil {
			return err
		}
		printJSON(stdout, b)

	case "delete":
		if err := api.DeleteBucketlist(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "deleted")

	case "items":
		its, err := api.ListItems(ctx, id)
		if err != nil {
			return err
		}
		printJSON(stdout, its)

	case "rename":
		name := strings.Join(rest[1:], " ")
		b, err := api.UpdateBucketlist(ctx, id, &name, nil)
		if err != nil {
			return err
		}
		printJSON(stdout, b)

	case "publish":
		public, err := strconv.ParseBool(rest[1])
		if err != nil {
			return fmt.Errorf("bad flag %q: want true or false", rest[1])
		}
		b, err := api.UpdateBucketlist(ctx, id, nil, &public)
		if err != nil {
			return err
		}
		printJSON(stdout, b)

	case "add":
		it, err := api.AddItem(ctx, id, strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		printJSON(stdout, it)

	case "done":
		itemID, err := parseID(rest[1], "item id")
		if err != nil {
			return err
		}
		done := true
		if len(rest) > 2 {
			if done, err = strconv.ParseBool(rest[2]); err != nil {
				return fmt.Errorf("bad flag %q: want true or false", rest[2])
			}
		}
		it, err := api.UpdateItem(ctx, id, itemID, nil, &done)
		if err != nil {
			return err
		}
		printJSON(stdout, it)

	case "rm":
		itemID, err := parseID(rest[1], "item id")
		if err != nil {
			return err
		}
		if err := api.DeleteItem(ctx, id, itemID); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "deleted")
	}
	return nil
}

// ---- helpers ----

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
