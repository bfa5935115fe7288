package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/studychat/internal/adapters/llm"
	"github.com/PabloGalante/studychat/internal/adapters/storage/memory"
	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/config"
	"github.com/PabloGalante/studychat/internal/domain"
)

var chatPartner string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Starts a conversation with a partner from the catalog. Type a message and
press enter to send it. Commands:

  /partners      list the partners you can talk to
  /switch <id>   start over with another partner
  /quit          leave`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatPartner, "partner", "p", string(conversation.DefaultPartnerID), "partner id to start with")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	policy, err := llm.ParsePolicy(cfg.ReplyPolicy)
	if err != nil {
		return err
	}

	sessions := memory.NewSessionStore()

	svc := conversation.NewService(
		llm.NewCannedResponder(policy, nil, nil),
		sessions,
		conversation.Options{
			Delay: &conversation.DelayRange{Min: cfg.ReplyDelayMin, Max: cfg.ReplyDelayMax},
		},
	)
	defer svc.EndAll(context.Background())

	repl, err := newChatREPL(cmd.Context(), svc, domain.PartnerID(chatPartner), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer repl.Close()

	return repl.Run(cmd.InOrStdin())
}

// chatREPL prints every assistant message of one session exactly once,
// whether it arrives as a greeting or as a delayed reply.
type chatREPL struct {
	ctx context.Context
	svc *conversation.Service
	id  domain.SessionID

	mu          sync.Mutex
	out         io.Writer
	printed     map[domain.MessageID]bool
	unsubscribe func()
}

func newChatREPL(ctx context.Context, svc *conversation.Service, partner domain.PartnerID, out io.Writer) (*chatREPL, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	started, err := svc.StartSession(ctx, conversation.StartSessionInput{PartnerID: partner})
	if err != nil {
		return nil, err
	}

	r := &chatREPL{
		ctx:     ctx,
		svc:     svc,
		id:      started.Session.SessionID,
		out:     out,
		printed: make(map[domain.MessageID]bool),
	}
	if partner != "" && started.Session.Partner.ID != partner {
		r.printf("unknown partner %q, talking to %s instead\n", partner, started.Session.Partner.DisplayName)
	}
	r.render(started.Session)

	r.unsubscribe, _, err = svc.Subscribe(ctx, r.id, r.render)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Run reads lines from in until EOF or /quit.
func (r *chatREPL) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := r.HandleLine(scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// HandleLine processes one line of input and reports whether to stop.
func (r *chatREPL) HandleLine(line string) bool {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return false

	case line == "/quit" || line == "/exit":
		return true

	case line == "/partners":
		for _, p := range r.svc.Partners() {
			kind := "mentor"
			if p.IsAutomated {
				kind = "assistant"
			}
			r.printf("  %-8s %s %s (%s)\n", p.ID, p.Avatar, p.DisplayName, kind)
		}
		return false

	case strings.HasPrefix(line, "/switch"):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/switch"))
		out, err := r.svc.SwitchPartner(r.ctx, conversation.SwitchPartnerInput{
			SessionID: r.id,
			PartnerID: domain.PartnerID(id),
		})
		if err != nil {
			r.printf("error: %v\n", err)
			return false
		}
		if !out.Switched {
			r.printf("unknown partner %q, try /partners\n", id)
		}
		return false
	}

	if _, err := r.svc.SendMessage(r.ctx, conversation.SendMessageInput{SessionID: r.id, Text: line}); err != nil {
		r.printf("error: %v\n", err)
	}
	return false
}

// Close ends the session and stops printing.
func (r *chatREPL) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	_ = r.svc.EndSession(context.Background(), r.id)
}

func (r *chatREPL) render(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range snap.Log {
		if m.Sender != domain.SenderAssistant || r.printed[m.ID] {
			continue
		}
		r.printed[m.ID] = true
		fmt.Fprintf(r.out, "%s %s: %s\n", snap.Partner.Avatar, snap.Partner.DisplayName, m.Text)
	}
}

func (r *chatREPL) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
