package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/outsourcely/leadbridge/internal/config"
	"github.com/outsourcely/leadbridge/internal/pacing"
	"github.com/outsourcely/leadbridge/internal/rpc"
	"github.com/outsourcely/leadbridge/internal/workflow"
)

// runCampaign is the operator console: it attaches a client to the relay and
// drives the extract / filter / preview / send cycle interactively.
func runCampaign() error {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go config.Watch(ctx)

	token := cfg.Agent.Token
	if token == "" {
		token = cfg.Coordinator.Auth.Token
	}
	transport, err := rpc.Dial(ctx, cfg.Agent.CoordinatorURL, token)
	if err != nil {
		return fmt.Errorf("connect to coordinator: %w", err)
	}

	healthURL := fmt.Sprintf("http://localhost:%d/health", cfg.Coordinator.Port)
	client := rpc.NewClient(transport, healthURL)
	defer client.Close()

	// Pacing bounds are re-read on every draw so a config hot reload takes
	// effect mid-session.
	delay := func() time.Duration {
		wf := config.Get().Workflow
		return pacing.Uniform(
			time.Duration(wf.SendDelayMinMs)*time.Millisecond,
			time.Duration(wf.SendDelayMaxMs)*time.Millisecond,
		)()
	}
	campaign := workflow.NewCampaign(client, cfg.Workflow.MaxBatchSize, delay)

	fmt.Println("leadbridge campaign console. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[%s]> ", campaign.State())
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			printCampaignHelp()
		case "status":
			campaignStatus(ctx, client)
		case "extract":
			n := cfg.Workflow.MaxBatchSize
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			records, err := campaign.Extract(ctx, n)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("extracted %d conversations\n", len(records))
		case "filter":
			f := workflow.Filters{}
			for _, arg := range fields[1:] {
				key, val, ok := strings.Cut(arg, "=")
				if !ok {
					continue
				}
				switch key {
				case "company":
					f.Company = val
				case "keyword":
					f.Keyword = val
				}
			}
			campaign.SetFilters(f)
			fallthrough
		case "list":
			for _, rec := range campaign.Filtered() {
				fmt.Printf("  %-12s %-24s %s\n", rec.ConversationID, rec.SenderFullName, truncate(rec.LastMessage, 60))
			}
		case "preview":
			if len(fields) < 2 {
				fmt.Println("usage: preview <id> [id...]")
				continue
			}
			fmt.Print("template> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			jobs, err := campaign.Preview(fields[1:], scanner.Text())
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, job := range jobs {
				fmt.Printf("  -> %s (%s): %s\n", job.Conversation.SenderFullName, job.Conversation.ConversationID, job.PersonalizedMessage)
			}
		case "send":
			summary, err := campaign.Send(ctx)
			if err != nil {
				fmt.Println("error:", err)
			}
			fmt.Printf("sent=%d failed=%d\n", summary.Sent, summary.Failed)
			for _, e := range summary.Errors {
				fmt.Println("  !", e)
			}
		case "invite":
			if len(fields) < 2 {
				fmt.Println("usage: invite <profileURL> [note...]")
				continue
			}
			note := strings.Join(fields[2:], " ")
			result, err := client.SendConnection(ctx, fields[1], note)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if result.Success {
				fmt.Println("connection request sent")
			} else {
				fmt.Println("failed:", result.Error)
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

func campaignStatus(ctx context.Context, client *rpc.Client) {
	if !client.IsInstalled(ctx) {
		fmt.Println("bridge: unreachable")
		return
	}
	fmt.Println("bridge: reachable")
	session, err := client.CheckSession(ctx)
	if err != nil {
		fmt.Println("session:", err)
		return
	}
	if !session.IsLoggedIn {
		fmt.Println("session: logged out")
		return
	}
	name := "(name unresolved)"
	if session.UserName != nil {
		name = *session.UserName
	}
	fmt.Println("session: logged in as", name)
}

func printCampaignHelp() {
	fmt.Println("  status                      probe bridge and session")
	fmt.Println("  extract [n]                 pull up to n inbox conversations")
	fmt.Println("  filter company=X keyword=Y  narrow the extracted list")
	fmt.Println("  list                        show the filtered list")
	fmt.Println("  preview <id> [id...]        personalize a template for a selection")
	fmt.Println("  send                        deliver the previewed batch, paced")
	fmt.Println("  invite <profileURL> [note]  send a connection request")
	fmt.Println("  quit")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
