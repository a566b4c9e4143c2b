package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("modelrouterctl %s\n", version)
	case "health":
		doHealth()
	case "route":
		doRoute(args)
	case "model", "models":
		doModels(args)
	case "analytics", "stats":
		doAnalytics(args)
	case "help", "--help", "-h":
		usageTo(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	usageTo(os.Stderr)
}

func usageTo(w io.Writer) {
	_, _ = fmt.Fprintf(w, `modelrouterctl — CLI for the model router HTTP API

Usage: modelrouterctl <command> [arguments]

Environment:
  MODEL_ROUTER_URL  Base URL (default: http://localhost:8080)

Commands:
  modelrouterctl health
  modelrouterctl route <prompt> [preset]
  modelrouterctl models list
  modelrouterctl models reset
  modelrouterctl analytics
  modelrouterctl analytics recent [limit]
`)
}

// --- HTTP helpers ---

func baseURL() string {
	if u := os.Getenv("MODEL_ROUTER_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func doRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, baseURL()+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return http.DefaultClient.Do(req)
}

func doGet(path string) map[string]any {
	resp, err := doRequest(http.MethodGet, path, nil)
	fatal(err)
	defer func() { _ = resp.Body.Close() }()
	return readJSON(resp)
}

func doPost(path, bodyJSON string) map[string]any {
	resp, err := doRequest(http.MethodPost, path, strings.NewReader(bodyJSON))
	fatal(err)
	defer func() { _ = resp.Body.Close() }()
	return readJSON(resp)
}

func doPut(path, bodyJSON string) map[string]any {
	resp, err := doRequest(http.MethodPut, path, strings.NewReader(bodyJSON))
	fatal(err)
	defer func() { _ = resp.Body.Close() }()
	return readJSON(resp)
}

func readJSON(resp *http.Response) map[string]any {
	data, err := io.ReadAll(resp.Body)
	fatal(err)
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "HTTP %d: %s\n", resp.StatusCode, string(data))
		os.Exit(1)
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		fmt.Fprintf(os.Stderr, "error: unparseable response: %v\n", err)
		os.Exit(1)
	}
	return result
}

func fatal(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func prettyJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func requireArgs(args []string, min int, usage string) {
	if len(args) < min {
		fmt.Fprintf(os.Stderr, "usage: modelrouterctl %s\n", usage)
		os.Exit(1)
	}
}

func fmtNum(v any) string {
	if v == nil {
		return "-"
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return strconv.Itoa(int(n))
		}
		return strconv.FormatFloat(n, 'f', 2, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// --- Commands ---

func doHealth() {
	resp, err := doRequest(http.MethodGet, "/healthz", nil)
	fatal(err)
	defer func() { _ = resp.Body.Close() }()
	data := readJSON(resp)
	fmt.Printf("Status: %v\n", data["status"])
	fmt.Printf("Models: %v\n", data["models"])
}

func doRoute(args []string) {
	requireArgs(args, 1, "route <prompt> [preset]")
	body := map[string]string{"prompt": args[0]}
	if len(args) > 1 {
		body["priorityPreset"] = args[1]
	}
	payload, _ := json.Marshal(body)
	result := doPost("/v1/route", string(payload))
	fmt.Println(prettyJSON(result))
}

func doModels(args []string) {
	if len(args) == 0 || args[0] == "list" {
		data := doGet("/v1/models")
		models, _ := data["models"].([]any)
		if len(models) == 0 {
			fmt.Println("No models registered.")
			return
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "MODEL\tPROVIDER\tCONTEXT\tIN $/1M\tOUT $/1M\tAVAILABLE")
		for _, m := range models {
			mm, _ := m.(map[string]any)
			key, _ := mm["key"].(string)
			provider, _ := mm["provider"].(string)
			ctx := fmtNum(mm["contextWindowTokens"])
			in := fmtNum(mm["priceInputPerMillion"])
			out := fmtNum(mm["priceOutputPerMillion"])
			available := "yes"
			if mm["available"] == false {
				available = "no"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", key, provider, ctx, in, out, available)
		}
		_ = tw.Flush()
		return
	}

	switch args[0] {
	case "reset":
		result := doPut("/v1/models", `{"action":"reset"}`)
		if result["models"] != nil {
			fmt.Println("All models reset to available.")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown model command: %s\n", args[0])
		os.Exit(1)
	}
}

func doAnalytics(args []string) {
	if len(args) > 0 && args[0] == "recent" {
		path := "/v1/analytics/recent"
		if len(args) > 1 {
			if _, err := strconv.Atoi(args[1]); err == nil {
				path += "?limit=" + args[1]
			}
		}
		data := doGet(path)
		fmt.Println(prettyJSON(data))
		return
	}
	data := doGet("/v1/analytics")
	fmt.Println(prettyJSON(data))
}
