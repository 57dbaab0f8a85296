package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"http-fixture/application/http"
	"http-fixture/application/http/actor/client"
	"http-fixture/transport/tcp"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	method  string
	headers []string
	data    string
	follow  bool
	timeout time.Duration
	output  string
}

func newRequestCmd() *cobra.Command {
	var f requestFlags

	cmd := &cobra.Command{
		Use:   "request URL",
		Short: "Send one request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(tcp.Dialer{Timeout: f.timeout}, slog.New(slog.DiscardHandler), client.Options{
				FollowRedirects: f.follow,
				Timeout:         f.timeout,
				FileSystem:      afero.NewOsFs(),
			})
			return runRequest(cmd, c, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.method, "method", "X", "GET", "request method")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, `request header as "Name: value", repeatable`)
	flags.StringVarP(&f.data, "data", "d", "", "request body")
	flags.BoolVarP(&f.follow, "location", "L", false, "follow redirects")
	flags.DurationVar(&f.timeout, "timeout", 30*time.Second, "time allowed for the whole request")
	flags.StringVarP(&f.output, "output", "o", "", "write the body of a GET to this file instead")

	return cmd
}

func runRequest(cmd *cobra.Command, c *client.Client, rawURL string, f requestFlags) error {
	ctx := cmd.Context()

	if f.output != "" {
		return c.Download(ctx, rawURL, f.output)
	}

	headers, err := parseHeaderFlags(f.headers)
	if err != nil {
		return err
	}

	var body []byte
	if f.data != "" {
		body = []byte(f.data)
	}

	res, err := c.Do(ctx, strings.ToUpper(f.method), rawURL, headers, body)
	if err != nil {
		return err
	}

	return printResponse(cmd.OutOrStdout(), res)
}

func parseHeaderFlags(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		field, err := http.ParseField([]byte(h))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid header %q", h)
		}
		headers[strings.TrimSpace(field.Name)] = field.Value
	}
	return headers, nil
}

func printResponse(w io.Writer, res *http.Response) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d %s\n", res.StatusCode, res.StatusMessage)
	for _, name := range slices.Sorted(maps.Keys(res.Headers)) {
		fmt.Fprintf(&sb, "%s: %s\n", name, res.Headers[name])
	}
	for _, c := range res.Cookies {
		fmt.Fprintf(&sb, "set-cookie: %s\n", c)
	}
	sb.WriteString("\n")
	sb.Write(res.Body())

	_, err := io.WriteString(w, sb.String())
	return err
}
