package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/errors"
	"github.com/strata-dev/strata/pkg/devtools"
)

func inspectCmd() *cobra.Command {
	var (
		url     string
		store   string
		rawJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Stream live mutations and actions",
		Long: `Connect to a running application's devtools websocket and print
every mutation and action as it happens.

Examples:
  strata inspect
  strata inspect --url=ws://localhost:6360/ws
  strata inspect --store=cart --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(url, store, rawJSON)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Devtools websocket URL (default from strata.json)")
	cmd.Flags().StringVarP(&store, "store", "s", "", "Only show frames for this store id")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print raw frames as JSON lines")

	return cmd
}

func runInspect(url, store string, rawJSON bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if url == "" {
		url = cfg.DevtoolsURL
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return errors.New("E201").Wrap(err)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "connected to %s\n", url)

	// Close the connection on interrupt so ReadJSON unblocks.
	interrupted := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(interrupted)
		conn.Close()
	}()

	for {
		var frame devtools.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-interrupted:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.New("E202").Wrap(err)
		}
		if frame, ok := filterFrame(frame, store); ok {
			printFrame(frame, rawJSON)
		}
	}
}

// filterFrame applies the --store filter. Init frames are narrowed to
// the requested store; other frames pass only when they name it.
func filterFrame(f devtools.Frame, store string) (devtools.Frame, bool) {
	if store == "" {
		return f, true
	}
	if f.Type == devtools.FrameInit {
		kept := make([]devtools.StoreState, 0, 1)
		for _, st := range f.Stores {
			if st.ID == store {
				kept = append(kept, st)
			}
		}
		f.Stores = kept
		return f, true
	}
	return f, f.Store == store
}

func printFrame(frame devtools.Frame, rawJSON bool) {
	if rawJSON {
		out, err := json.Marshal(frame)
		if err != nil {
			return
		}
		fmt.Println(string(out))
		return
	}

	ts := time.Now().Format("15:04:05.000")
	switch frame.Type {
	case devtools.FrameInit:
		fmt.Printf("%s  init       %d store(s)\n", ts, len(frame.Stores))
		for _, st := range frame.Stores {
			fmt.Printf("           %-12s %s\n", st.ID, st.State)
		}
	case devtools.FrameMutation:
		kind := ""
		if frame.Mutation != nil {
			kind = fmt.Sprintf("%s v%d", frame.Mutation.Type, frame.Mutation.Version)
		}
		fmt.Printf("%s  mutation   %-12s %-22s %s\n", ts, frame.Store, kind, frame.State)
	case devtools.FrameAction:
		if frame.Action == nil {
			return
		}
		status := frame.Action.Status
		if frame.Action.Error != "" {
			status = fmt.Sprintf("%s (%s)", status, frame.Action.Error)
		}
		fmt.Printf("%s  action     %-12s %s %.2fms %s\n",
			ts, frame.Store, frame.Action.Name, frame.Action.DurationMS, status)
	default:
		fmt.Printf("%s  %s\n", ts, frame.Type)
	}
}
