package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "match server base url")
	_ = fs.Parse(args)
	os.Exit(fetch(*baseURL, "/v1/observer/bootstrap", os.Stdout))
}

func metricsCmd(args []string) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "match server base url")
	_ = fs.Parse(args)
	os.Exit(fetch(*baseURL, "/metrics", os.Stdout))
}

// fetch copies the body of GET base+path to w and returns the exit code.
func fetch(base, path string, w io.Writer) int {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 1
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(w, strings.TrimRight(string(b), "\n"))
	if resp.StatusCode/100 != 2 {
		return 1
	}
	return 0
}
