package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sathwikbalu/Zenith-Study/internal/mesh"
	"github.com/sathwikbalu/Zenith-Study/internal/sessionname"
	"github.com/sathwikbalu/Zenith-Study/internal/ui"
)

var (
	joinFlags   connectionFlags
	flagMuted   bool
	flagNoMedia bool
	flagRetries int
)

var joinCmd = &cobra.Command{
	Use:     "join [session-id|url]",
	Aliases: []string{"j"},
	Short:   "Join a study session as a mesh peer",
	Long: `Join a study session and connect to every other member over WebRTC.
Without a session id a new memorable one is generated.

Examples:
  studyroom join
  studyroom join curious-algebra-lantern-harbor --name Ada
  studyroom join https://study.example.com/session/curious-algebra-lantern-harbor --relay`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sessionID string
		var err error
		if len(args) == 1 {
			sessionID, err = parseSessionInput(args[0])
		} else {
			sessionID, err = sessionname.Generate(nil)
		}
		if err != nil {
			return err
		}
		return joinSession(cmd.Context(), sessionID)
	},
}

func joinSession(ctx context.Context, sessionID string) error {
	conn, err := connect(ctx, &joinFlags)
	if err != nil {
		return err
	}
	defer conn.Close()

	self := joinFlags.identity(sessionID)

	var source mesh.MediaSource = mesh.SampleSource{
		StreamID:   self.UserID,
		Audio:      true,
		Video:      true,
		AudioMuted: flagMuted,
		VideoMuted: flagMuted,
	}
	if flagNoMedia {
		source = mesh.NoMedia{}
	}

	var retry mesh.RetryPolicy = mesh.NoRetry{}
	if flagRetries > 0 {
		retry = mesh.RetryUpTo(flagRetries)
	}

	fmt.Println(ui.SessionInfo{
		SessionID:   sessionID,
		SessionLink: conn.Config.GetSessionLink(sessionID),
		UserName:    self.UserName,
		IsTutor:     self.IsTutor,
	}.View())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var screen *ui.RoomUI
	session := mesh.NewSession(self, conn.Hub, mesh.Options{
		Connect: mesh.PionFactory(conn.Config),
		Media:   source,
		Retry:   retry,
		OnChange: func(v mesh.View) {
			screen.Push(v)
		},
	})
	screen = ui.NewRoomUI(session, ui.SessionInfo{SessionID: sessionID})

	runErr := make(chan error, 1)
	go func() {
		err := session.Run(ctx)
		screen.Quit()
		runErr <- err
	}()

	if err := screen.Run(); err != nil {
		return mesh.NewError("run room view", err)
	}
	cancel()

	err = <-runErr
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		ui.PrintSuccessf("Left %s", sessionID)
		return nil
	default:
		return err
	}
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinFlags.register(joinCmd)
	joinCmd.Flags().BoolVarP(&flagMuted, "muted", "m", false, "Start with microphone and camera off")
	joinCmd.Flags().BoolVar(&flagNoMedia, "no-media", false, "Join receive-only")
	joinCmd.Flags().IntVar(&flagRetries, "retries", 0, "ICE restarts per failed link")
}
