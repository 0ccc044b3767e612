package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexschlessinger/companion/server"
	"github.com/alexschlessinger/companion/stats"
	"github.com/urfave/cli/v3"
)

func smokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "smoke",
		Usage: "Run a scripted conversation against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL of the server",
				Value: "http://localhost:3000",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout",
				Value: 90 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := &apiClient{
				baseURL: strings.TrimRight(cmd.String("url"), "/"),
				http:    &http.Client{Timeout: cmd.Duration("timeout")},
			}
			return runSmoke(ctx, c, newStyles(os.Stdout))
		},
	}
}

// smokeTurns is the scripted conversation
var smokeTurns = []struct {
	label   string
	message string
	stress  string
}{
	{"HIGH", "I'm feeling really overwhelmed and anxious right now", "high"},
	{"MODERATE", "Yeah, work has been really stressful lately", "moderate"},
	{"LOW", "Thanks for being here. That actually helped a bit", "low"},
}

const smokeName = "Alex"

type apiClient struct {
	baseURL string
	http    *http.Client
}

// call sends body as JSON to path and decodes a 200 response into out
func (c *apiClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func runSmoke(ctx context.Context, c *apiClient, s *styles) error {
	fail := func(err error) error {
		fmt.Fprintln(s.out, s.failure.Styled("✗ "+err.Error()))
		return err
	}

	fmt.Fprintln(s.out, s.step.Styled("1. Creating session"))
	var session struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/session/new", nil, &session); err != nil {
		return fail(err)
	}
	fmt.Fprintln(s.out, s.success.Styled("✓ session "+session.SessionID))

	fmt.Fprintln(s.out, s.step.Styled("2. Setting user name"))
	if err := c.call(ctx, http.MethodPost, "/api/preferences/"+session.SessionID,
		server.PreferencesRequest{Name: smokeName}, nil); err != nil {
		return fail(err)
	}
	fmt.Fprintln(s.out, s.success.Styled("✓ name "+smokeName))

	for i, turn := range smokeTurns {
		fmt.Fprintln(s.out, s.step.Styled(fmt.Sprintf("%d. %s stress message", i+3, turn.label)))
		var reply struct {
			Reply       string `json:"reply"`
			StressLevel string `json:"stressLevel"`
		}
		err := c.call(ctx, http.MethodPost, "/api/chat", server.ChatRequest{
			SessionID:   session.SessionID,
			Message:     turn.message,
			StressLevel: turn.stress,
		}, &reply)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintln(s.out, s.assistant.Styled(reply.Reply))
		fmt.Fprintln(s.out, s.dim.Styled("stress: "+reply.StressLevel))
	}

	fmt.Fprintln(s.out, s.step.Styled(fmt.Sprintf("%d. Fetching stats", len(smokeTurns)+3)))
	var summary stats.Stats
	if err := c.call(ctx, http.MethodGet, "/api/stats/"+session.SessionID, nil, &summary); err != nil {
		return fail(err)
	}
	if summary.Stats.UserMessages != len(smokeTurns) {
		return fail(fmt.Errorf("expected %d user messages, got %d", len(smokeTurns), summary.Stats.UserMessages))
	}
	fmt.Fprintln(s.out, s.dim.Styled(fmt.Sprintf("messages: %d, average mood: %.1f, trend: %+d (%s)",
		summary.Stats.TotalMessages, summary.Stats.AverageMood, summary.Stats.Trend, summary.Stats.Direction)))

	fmt.Fprintln(s.out, s.success.Styled("✓ all checks passed"))
	return nil
}
