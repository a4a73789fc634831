package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/takutakahashi/authclient/pkg/client"
)

var (
	requestData    string
	requestHeaders []string
	requestQuery   []string
)

var RequestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an authenticated request",
	Long: `Send a request to the API with the stored credentials and print the response body.

Expired credentials are renewed once and the request is replayed.

Examples:
  authclient request GET /jobs
  authclient request POST /jobs --data '{"title":"Backend engineer"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

func init() {
	RequestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
	RequestCmd.Flags().StringArrayVarP(&requestHeaders, "header", "H", nil, "Extra header as 'Name: value'")
	RequestCmd.Flags().StringArrayVarP(&requestQuery, "query", "q", nil, "Query parameter as 'name=value'")
}

func getRequest(path string) *client.Request {
	return client.NewRequest(http.MethodGet, path)
}

// buildRequest turns the command line into a client request
func buildRequest(method, path, data string, headers, query []string) (*client.Request, error) {
	req := client.NewRequest(strings.ToUpper(method), path)

	if data != "" {
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("--data is not valid JSON")
		}
		req.Body = []byte(data)
		req.Header = http.Header{}
		req.Header.Set("Content-Type", "application/json")
	}

	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	for _, q := range query {
		name, value, ok := strings.Cut(q, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected 'name=value'", q)
		}
		if req.Query == nil {
			req.Query = make(map[string][]string)
		}
		req.Query.Add(name, value)
	}
	return req, nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], args[1], requestData, requestHeaders, requestQuery)
	if err != nil {
		return err
	}

	env, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	resp, err := env.client.Do(cmd.Context(), req)
	if err != nil {
		return err
	}
	env.log.WithField("status", resp.StatusCode).Debug("request completed")

	out := resp.Body
	var pretty bytes.Buffer
	if json.Indent(&pretty, resp.Body, "", "  ") == nil {
		out = pretty.Bytes()
	}
	if len(out) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return nil
}
