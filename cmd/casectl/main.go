// casectl is a small operator CLI for local development: it mints bearer
// tokens and drives the case API without a frontend.
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
	"time"

	"casetrack/internal/authz"
	"casetrack/internal/domain"
	"casetrack/internal/dto"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "token":
		err = runToken(args)
	case "create":
		err = runCreate(args)
	case "transition":
		err = runTransition(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  token       Mint a development bearer token")
	fmt.Fprintln(os.Stderr, "  create      Create a case")
	fmt.Fprintln(os.Stderr, "  transition  Apply a workflow action to a case")
	os.Exit(2)
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	secret := fs.String("secret", getenv("CASETRACK_SIGNING_KEY", ""), "shared HS256 signing key")
	issuer := fs.String("issuer", getenv("CASETRACK_ISSUER", "casetrack"), "token issuer")
	sub := fs.String("user", "", "user UUID (generated if empty)")
	role := fs.String("role", string(domain.RoleAdmin), "role claim (ADMIN, CHAIR, CASEWORKER, CLERK)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return fmt.Errorf("signing key is required (flag -secret or CASETRACK_SIGNING_KEY)")
	}
	r := domain.Role(strings.ToUpper(strings.TrimSpace(*role)))
	if !r.Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}

	id := uuid.New()
	if strings.TrimSpace(*sub) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*sub))
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		id = parsed
	}

	tok, err := authz.Mint(*secret, *issuer, id, r, *ttl)
	if err != nil {
		return err
	}

	return printJSON(struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
		Token  string `json:"token"`
	}{id.String(), string(r), tok})
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	baseURL := fs.String("base-url", getenv("CASECTL_BASE_URL", "http://localhost:8080"), "case service base URL")
	bearer := fs.String("token", getenv("CASECTL_TOKEN", ""), "bearer token")
	title := fs.String("title", "", "case title")
	desc := fs.String("description", "", "case description")
	priority := fs.String("priority", "", "case priority (LOW, MEDIUM, HIGH, URGENT)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("title is required")
	}

	var out dto.CaseResponse
	err := callAPI(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/v1/cases", *bearer, dto.CreateCaseRequest{
		Title:       *title,
		Description: *desc,
		Priority:    strings.ToUpper(strings.TrimSpace(*priority)),
	}, &out)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runTransition(args []string) error {
	fs := flag.NewFlagSet("transition", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	baseURL := fs.String("base-url", getenv("CASECTL_BASE_URL", "http://localhost:8080"), "case service base URL")
	bearer := fs.String("token", getenv("CASECTL_TOKEN", ""), "bearer token")
	caseID := fs.String("case", "", "case UUID")
	action := fs.String("action", "", "workflow action (assign, accept, reject, request_completion, approve, close, archive)")
	assignee := fs.String("assignee", "", "target caseworker UUID (assign only)")
	comment := fs.String("comment", "", "optional comment for the audit log")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*caseID) == "" {
		return fmt.Errorf("case id is required")
	}
	if strings.TrimSpace(*action) == "" {
		return fmt.Errorf("action is required")
	}

	var out dto.CaseResponse
	url := fmt.Sprintf("%s/v1/cases/%s/transition", strings.TrimRight(*baseURL, "/"), strings.TrimSpace(*caseID))
	err := callAPI(http.MethodPost, url, *bearer, dto.TransitionRequest{
		Action:     strings.TrimSpace(*action),
		AssigneeID: strings.TrimSpace(*assignee),
		Comment:    *comment,
	}, &out)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func callAPI(method, url, bearer string, payload, out any) error {
	if bearer == "" {
		return fmt.Errorf("bearer token is required (flag -token or CASECTL_TOKEN)")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		if len(data) == 0 {
			data = []byte(resp.Status)
		}
		return fmt.Errorf("request failed: %s", strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
