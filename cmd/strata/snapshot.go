package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/internal/errors"
	"github.com/strata-dev/strata/pkg/devtools"
)

func snapshotCmd() *cobra.Command {
	var (
		url    string
		store  string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current state of every store",
		Long: `Fetch a one-shot snapshot from the devtools HTTP endpoint.

Examples:
  strata snapshot
  strata snapshot --store=cart
  strata snapshot --pretty > state.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(url, store, pretty)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Devtools base URL (default derived from strata.json)")
	cmd.Flags().StringVarP(&store, "store", "s", "", "Only print this store id")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")

	return cmd
}

// httpBase converts a websocket endpoint to the HTTP base it is mounted
// under, so a configured devtoolsUrl serves both commands.
func httpBase(url string) string {
	url = strings.TrimSuffix(url, "/ws")
	if rest, ok := strings.CutPrefix(url, "ws://"); ok {
		return "http://" + rest
	}
	if rest, ok := strings.CutPrefix(url, "wss://"); ok {
		return "https://" + rest
	}
	return url
}

func runSnapshot(url, store string, pretty bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if url == "" {
		url = httpBase(cfg.DevtoolsURL)
	}
	url = strings.TrimSuffix(url, "/")

	target := url + "/stores"
	if store != "" {
		target += "/" + store
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(target)
	if err != nil {
		return errors.New("E201").Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New("E201").Wrap(err)
	}
	if resp.StatusCode == http.StatusNotFound && store != "" {
		return fmt.Errorf("store %q is not registered", store)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("E201").Wrap(fmt.Errorf("devtools returned %s", resp.Status))
	}

	if store != "" {
		var st devtools.StoreState
		if err := json.Unmarshal(body, &st); err != nil {
			return errors.New("E201").Wrap(err)
		}
		return printJSON(st.State, pretty)
	}

	var stores []devtools.StoreState
	if err := json.Unmarshal(body, &stores); err != nil {
		return errors.New("E201").Wrap(err)
	}
	for _, st := range stores {
		fmt.Printf("%s:\n", st.ID)
		if err := printJSON(st.State, pretty); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(raw []byte, pretty bool) error {
	if !pretty {
		fmt.Println(string(raw))
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}
