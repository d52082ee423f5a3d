package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sathwikbalu/Zenith-Study/internal/mesh"
	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
	"github.com/sathwikbalu/Zenith-Study/internal/ui"
	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

var (
	boardFlags      connectionFlags
	flagBoardOut    string
	flagBoardFrom   string
	flagBoardFormat string
)

var boardCmd = &cobra.Command{
	Use:   "board [session-id|url]",
	Short: "Fetch or show a session's whiteboard",
	Long: `Request the current whiteboard of a session and print it, or save it
as a snapshot file for later.

Examples:
  studyroom board curious-algebra-lantern-harbor
  studyroom board curious-algebra-lantern-harbor --format csv
  studyroom board curious-algebra-lantern-harbor --out board.msgpack
  studyroom board --from board.msgpack --format markdown`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := whiteboard.ParseFormat(flagBoardFormat)
		if err != nil {
			return err
		}

		if flagBoardFrom != "" {
			snap, err := readSnapshot(flagBoardFrom)
			if err != nil {
				return err
			}
			ui.PrintInfof("Session %s, saved %s", snap.SessionID, snap.SavedAt.Local().Format(time.RFC1123))
			fmt.Fprintln(cmd.OutOrStdout(), whiteboard.Render(snap.Objects, format))
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a session id is required unless --from is given")
		}
		sessionID, err := parseSessionInput(args[0])
		if err != nil {
			return err
		}

		objs, err := fetchBoard(cmd.Context(), sessionID)
		if err != nil {
			return err
		}

		if flagBoardOut != "" {
			if err := writeSnapshot(flagBoardOut, whiteboard.SnapshotFile{
				SessionID: sessionID,
				SavedAt:   time.Now().UTC(),
				Objects:   objs,
			}); err != nil {
				return err
			}
			ui.PrintSuccessf("Saved %d objects to %s", len(objs), flagBoardOut)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), whiteboard.Render(objs, format))
		return nil
	},
}

func fetchBoard(ctx context.Context, sessionID string) ([]whiteboard.Object, error) {
	conn, err := connect(ctx, &boardFlags)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Hub.Send(&signaling.WhiteboardRequestSync{SessionID: sessionID}); err != nil {
		return nil, err
	}
	sync, err := waitFor[*signaling.WhiteboardSync](ctx, conn.Hub, nil)
	if err != nil {
		return nil, err
	}
	return sync.Objects, nil
}

func writeSnapshot(path string, snap whiteboard.SnapshotFile) error {
	f, err := os.Create(path)
	if err != nil {
		return mesh.NewError("create snapshot file", err)
	}
	if err := whiteboard.EncodeSnapshot(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readSnapshot(path string) (whiteboard.SnapshotFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return whiteboard.SnapshotFile{}, mesh.NewError("open snapshot file", err)
	}
	defer f.Close()
	return whiteboard.DecodeSnapshot(f)
}

func init() {
	rootCmd.AddCommand(boardCmd)

	boardFlags.register(boardCmd)
	boardCmd.Flags().StringVarP(&flagBoardOut, "out", "o", "", "Save the board to a msgpack snapshot file")
	boardCmd.Flags().StringVar(&flagBoardFrom, "from", "", "Show a saved snapshot file instead of fetching")
	boardCmd.Flags().StringVarP(&flagBoardFormat, "format", "f", "table", "Output format: table, csv or markdown")
}
