package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
	"github.com/sathwikbalu/Zenith-Study/internal/ui"
)

var (
	chatFlags connectionFlags
	flagEmoji bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <session-id|url> <message>",
	Short: "Send one chat message to a session",
	Long: `Post a chat message to a session without joining it.

Examples:
  studyroom chat curious-algebra-lantern-harbor "brb in 5"
  studyroom chat curious-algebra-lantern-harbor 👍 --emoji`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionInput(args[0])
		if err != nil {
			return err
		}
		return sendChat(cmd.Context(), sessionID, args[1])
	},
}

func sendChat(ctx context.Context, sessionID, text string) error {
	conn, err := connect(ctx, &chatFlags)
	if err != nil {
		return err
	}
	defer conn.Close()

	self := chatFlags.identity(sessionID)

	msgType := "text"
	if flagEmoji {
		msgType = "emoji"
	}
	if err := conn.Hub.Send(&signaling.ChatMessage{
		SessionID:   sessionID,
		Message:     text,
		UserID:      self.UserID,
		UserName:    self.UserName,
		MessageType: msgType,
	}); err != nil {
		return err
	}

	echo, err := waitFor(ctx, conn.Hub, func(m *signaling.ChatBroadcast) bool {
		return m.UserID == self.UserID && m.Message == text
	})
	if err != nil {
		return err
	}
	ui.PrintSuccessf("Sent at %s", echo.Timestamp.Local().Format("15:04:05"))
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatFlags.register(chatCmd)
	chatCmd.Flags().BoolVar(&flagEmoji, "emoji", false, "Send as an emoji reaction")
}
