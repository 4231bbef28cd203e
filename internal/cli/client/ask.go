package client

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		newSession bool
		specialty  string
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the consultation assistant",
		Long: `Asks a question within the current conversation. The session is
remembered between invocations; --new starts a fresh one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			r := NewRenderer(cmd.OutOrStdout(), plain || outputJSON)
			return runAsk(cmd.Context(), api, r, strings.Join(args, " "), newSession, specialty, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&newSession, "new", false, "Start a new conversation")
	cmd.Flags().StringVarP(&specialty, "specialty", "s", "", "Specialty of a new conversation (code or label)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print the answer without terminal styling")

	return cmd
}

func runAsk(ctx context.Context, api *APIClient, r *Renderer, question string, newSession bool, specialty string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sessionID := ""
	if !newSession && specialty == "" {
		id, err := CurrentSessionID(api.BaseURL())
		if err != nil {
			return err
		}
		sessionID = id
	}

	if sessionID == "" {
		id, err := createSession(ctx, api, specialty)
		if err != nil {
			return err
		}
		sessionID = id
	}

	var turn Turn
	err := api.Post(ctx, sessionPath(sessionID, "messages"), askRequest{Query: question}, &turn)
	if IsNotFound(err) && !newSession {
		// The server dropped the remembered session; start over once.
		fmt.Fprintln(os.Stderr, "session expired, starting a new conversation")
		if sessionID, err = createSession(ctx, api, specialty); err != nil {
			return err
		}
		err = api.Post(ctx, sessionPath(sessionID, "messages"), askRequest{Query: question}, &turn)
	}
	if err != nil {
		return err
	}

	if err := RememberSession(api.BaseURL(), sessionID); err != nil {
		return err
	}

	if outputJSON {
		return r.JSON(turn)
	}
	return r.Turn(&turn)
}

func createSession(ctx context.Context, api *APIClient, specialty string) (string, error) {
	var resp createSessionResponse
	if err := api.Post(ctx, "/v1/sessions", createSessionRequest{Specialty: specialty}, &resp); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return resp.SessionID, nil
}
