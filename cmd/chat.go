package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/campusmind/internal"
	"github.com/iksnae/campusmind/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	chatMessage string
	chatSave    string
	chatFormat  string
)

const replHelp = `Type a question and press Enter. Questions are answered as they come in.

  /refresh        update the knowledge base from the documents folder
  /save <file>    write the transcript (.md, .json, .jsonl or .yaml)
  /help           show this help
  /quit           leave once pending answers have arrived`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the campus assistant",
	Long: `Open an interactive chat. Each line you type is sent to the assistant;
a "Typing..." placeholder is shown until its answer arrives. Several questions
can be in flight at once (bounded by --max-pending).

Use -m to ask a single question and exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatFormat != "" {
			if _, err := export.NewExporter(chatFormat); err != nil {
				return err
			}
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if chatMessage != "" {
			reply, ok := s.controller.SendMessage(ctx, chatMessage)
			if !ok {
				return errors.New("message must not be blank")
			}
			if err := s.save(chatSave); err != nil {
				return err
			}
			if reply.Text == internal.OfflineMessage {
				return errors.New("chat request failed")
			}
			return nil
		}

		s.renderer.Println(internal.FormatGreeting(s.identity))
		s.renderer.Println("Type /help for commands.")

		if err := s.repl(ctx); err != nil {
			return err
		}
		return s.save(chatSave)
	},
}

// repl reads input lines until EOF or /quit and waits for pending answers
// and a running refresh before returning
func (s *chatSession) repl(ctx context.Context) error {
	var g, bg errgroup.Group
	if s.cfg.MaxPending > 0 {
		g.SetLimit(s.cfg.MaxPending)
	}
	wait := func() error {
		_ = bg.Wait()
		return g.Wait()
	}

	for {
		line, err := s.in.ReadString('\n')
		s.renderer.Detach()
		if line = strings.TrimSpace(line); line != "" {
			if quit := s.handleLine(ctx, &g, &bg, line); quit {
				break
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = wait()
			return fmt.Errorf("failed to read input: %w", err)
		}
	}

	if pending := s.controller.Transcript().Pending(); pending > 0 {
		internal.LogInfo("Waiting for %d pending answer(s)", pending)
	}
	return wait()
}

// handleLine runs a REPL command or dispatches line as a chat message. Sends
// go to g; refreshes run on bg and keep the input only until their
// confirmation is answered. It reports whether the session should end.
func (s *chatSession) handleLine(ctx context.Context, g, bg *errgroup.Group, line string) bool {
	if !strings.HasPrefix(line, "/") {
		g.Go(func() error {
			s.controller.SendMessage(ctx, line)
			return nil
		})
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		s.renderer.Println(replHelp)
	case "/refresh":
		lease := s.dialog.borrow()
		bg.Go(func() error {
			defer lease.release()
			if err := s.controller.RefreshKnowledge(ctx); errors.Is(err, internal.ErrRefreshInProgress) {
				internal.PrintWarning(s.out, "A refresh is already running.")
			}
			return nil
		})
		<-lease.free
	case "/save":
		if arg == "" {
			internal.PrintWarning(s.out, "Usage: /save <file>")
			break
		}
		if err := s.save(arg); err != nil {
			internal.PrintError(s.out, err.Error())
		}
	default:
		internal.PrintWarning(s.out, fmt.Sprintf("Unknown command %s, type /help for commands.", name))
	}
	return false
}

// save exports the transcript to path; an empty path is a no-op
func (s *chatSession) save(path string) error {
	if path == "" {
		return nil
	}
	if err := export.WriteFile(path, chatFormat, s.snapshot()); err != nil {
		return err
	}
	internal.PrintSuccess(s.out, "Transcript saved to "+path)
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVar(&chatSave, "save", "", "Write the transcript to this file on exit")
	chatCmd.Flags().StringVarP(&chatFormat, "format", "f", "", "Transcript format: md, json, jsonl, yaml (default from --save extension)")
}
