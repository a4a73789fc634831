package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	burstCount  int
	burstMethod string
)

var BurstCmd = &cobra.Command{
	Use:   "burst PATH",
	Short: "Send concurrent requests to exercise credential renewal",
	Long: `Send --count concurrent requests to PATH with the stored credentials.

When the access token has expired every request is rejected at once; the
client renews the credentials a single time and replays all of them.`,
	Args: cobra.ExactArgs(1),
	RunE: runBurst,
}

func init() {
	BurstCmd.Flags().IntVarP(&burstCount, "count", "n", 10, "Number of concurrent requests")
	BurstCmd.Flags().StringVarP(&burstMethod, "method", "X", http.MethodGet, "HTTP method")
}

// burstResult summarises one burst
type burstResult struct {
	Requests  int           `json:"requests" yaml:"requests"`
	Succeeded int64         `json:"succeeded" yaml:"succeeded"`
	Failed    int64         `json:"failed" yaml:"failed"`
	Renewed   bool          `json:"renewed" yaml:"renewed"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

func runBurst(cmd *cobra.Command, args []string) error {
	if burstCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	before := env.client.Store().Current().AccessToken
	start := time.Now()

	var succeeded, failed atomic.Int64
	// requests fail individually; the group only waits for them
	var g errgroup.Group
	for i := 0; i < burstCount; i++ {
		g.Go(func() error {
			req, err := buildRequest(burstMethod, args[0], "", nil, nil)
			if err != nil {
				return err
			}
			if _, err := env.client.Do(cmd.Context(), req); err != nil {
				failed.Add(1)
				env.log.WithError(err).Warn("request failed")
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result := burstResult{
		Requests:  burstCount,
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Renewed:   env.client.Store().Current().AccessToken != before,
		Elapsed:   time.Since(start).Round(time.Millisecond),
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s x%d: %d succeeded, %d failed, renewed=%t (%s)\n",
		strings.ToUpper(burstMethod), args[0], result.Requests, result.Succeeded, result.Failed, result.Renewed, result.Elapsed)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d requests failed", result.Failed, result.Requests)
	}
	return nil
}
