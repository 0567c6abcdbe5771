// loadgen registers and activates throwaway accounts against a running
// account-service and writes one bearer token per line for load tests.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const loadPassword = "LoadTest123"

type options struct {
	BaseURL       string
	AdminEmail    string
	AdminPassword string
	Count         int
}

const defaultRetries = 5

// client retries 429 responses after their Retry-After delay.
type client struct {
	base string
	http *http.Client

	retries int                 // 429 retries per call; 0 means defaultRetries
	sleep   func(time.Duration) // nil means time.Sleep
}

func main() {
	var opts options
	out := flag.String("out", "tests/load/tokens.csv", "token output file")
	flag.StringVar(&opts.BaseURL, "base-url", "http://localhost:8080", "account-service base url")
	flag.StringVar(&opts.AdminEmail, "admin-email", "admin@example.com", "admin account used to activate users")
	flag.StringVar(&opts.AdminPassword, "admin-password", "AdminPassword123", "admin password")
	flag.IntVar(&opts.Count, "n", 100, "accounts to create")
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	c := &client{base: strings.TrimRight(opts.BaseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
	n, err := run(c, opts, f)
	fmt.Printf("wrote %d tokens to %s\n", n, *out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *client, opts options, w io.Writer) (int, error) {
	adminToken, err := c.login(opts.AdminEmail, opts.AdminPassword)
	if err != nil {
		return 0, fmt.Errorf("admin login: %w", err)
	}

	written := 0
	for i := 0; i < opts.Count; i++ {
		email := fmt.Sprintf("load-%s@example.com", uuid.NewString()[:8])

		var created struct {
			ID int64 `json:"id"`
		}
		err := c.call(http.MethodPost, "/api/users/", "", map[string]string{
			"email":    email,
			"username": fmt.Sprintf("load-%d", i),
			"password": loadPassword,
		}, http.StatusCreated, &created)
		if err != nil {
			return written, fmt.Errorf("register %s: %w", email, err)
		}

		path := fmt.Sprintf("/api/users/activate/%d", created.ID)
		if err := c.call(http.MethodPost, path, adminToken, nil, http.StatusOK, nil); err != nil {
			return written, fmt.Errorf("activate %d: %w", created.ID, err)
		}

		tok, err := c.login(email, loadPassword)
		if err != nil {
			return written, fmt.Errorf("login %s: %w", email, err)
		}
		if _, err := io.WriteString(w, tok+"\n"); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (c *client) login(email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.call(http.MethodPost, "/api/users/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK, &out)
	return out.AccessToken, err
}

func (c *client) call(method, path, token string, body any, want int, dst any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	retries := c.retries
	if retries <= 0 {
		retries = defaultRetries
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 0; ; attempt++ {
		status, raw, wait, err := c.do(method, path, token, payload)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests && attempt < retries {
			sleep(wait)
			continue
		}
		if status != want {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, status, http.StatusText(status), bytes.TrimSpace(raw))
		}
		if dst == nil {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}
}

// do sends one request and returns the status, body and Retry-After delay.
func (c *client) do(method, path, token string, payload []byte) (int, []byte, time.Duration, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return 0, nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, retryAfter(resp.Header.Get("Retry-After")), nil
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
