package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
)

type askFlags struct {
	model   string
	version string
	style   string
	user    string
	chat    string
	files   []string
}

func newAskCmd(flags *rootFlags) *cobra.Command {
	af := &askFlags{}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question through the gateway pipeline",
		Long: "Answer one question through the same pipeline the server uses.\n" +
			"Without arguments the question is read from stdin when it is not a terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := questionFrom(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			req := orchestrator.Request{
				Question:  question,
				ModelKey:  strings.ToLower(af.model),
				Version:   af.version,
				Style:     af.style,
				UserID:    af.user,
				ChatID:    af.chat,
				Transport: "cli",
			}
			for _, path := range af.files {
				f, err := readLocalFile(path)
				if err != nil {
					return err
				}
				req.Files = append(req.Files, f)
			}

			res := a.service.Answer(cmd.Context(), req)
			if res.ModelUsed != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), colorCyan+res.ModelUsed+colorReset)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Reply)
			if res.ChatID != "" && af.chat == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), colorGreen+"chat: "+res.ChatID+colorReset)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&af.model, "model", "m", "", "logical model key (default orchestration.default_model)")
	cmd.Flags().StringVar(&af.version, "version-selector", "", "version selector: latest, best, good, cheap, a label or an id")
	cmd.Flags().StringVar(&af.style, "style", "", "simple or structured")
	cmd.Flags().StringVar(&af.user, "user", "", "user id for persistence")
	cmd.Flags().StringVar(&af.chat, "chat", "", "chat id to continue")
	cmd.Flags().StringArrayVarP(&af.files, "file", "f", nil, "attach a file (repeatable)")
	return cmd
}

// questionFrom joins args, or reads in when no args are given and in is
// not an interactive terminal.
func questionFrom(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read question from stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readLocalFile(path string) (ingest.UploadedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.UploadedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return ingest.Wrap(name, data, mime.TypeByExtension(filepath.Ext(name))), nil
}
