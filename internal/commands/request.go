package commands

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-restkit/restclient"
)

// requestOptions holds per-command body flags.
type requestOptions struct {
	Data string
}

func newMethodCommand(opts *Options, method restclient.Method) *cobra.Command {
	reqOpts := &requestOptions{}
	verb := method.String()

	cmd := &cobra.Command{
		Use:   strings.ToLower(verb) + " <url>",
		Short: fmt.Sprintf("Send a %s request", verb),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, method, "", args[0], reqOpts)
		},
	}

	if acceptsBody(method) {
		addDataFlag(cmd, reqOpts)
	}
	return cmd
}

func newRequestCommand(opts *Options) *cobra.Command {
	reqOpts := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "request <method> <url>",
		Short: "Send a request with any HTTP method",
		Example: `  # Invalidate a cached resource
  restcall request PURGE https://cdn.example.com/assets/app.js`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			verb := strings.ToUpper(args[0])
			method := restclient.ParseMethod(verb)
			custom := ""
			if method == restclient.MethodCustom {
				custom = verb
			}
			return opts.run(cmd, method, custom, args[1], reqOpts)
		},
	}

	addDataFlag(cmd, reqOpts)
	return cmd
}

func addDataFlag(cmd *cobra.Command, reqOpts *requestOptions) {
	cmd.Flags().StringVarP(&reqOpts.Data, "data", "d", "", "Request body; @file reads a file and - reads stdin")
}

func acceptsBody(m restclient.Method) bool {
	switch m {
	case restclient.MethodPost, restclient.MethodPut, restclient.MethodPatch:
		return true
	default:
		return false
	}
}

// run sends one request and prints the response. A non-2xx status fails the command
// after the body is printed.
func (o *Options) run(cmd *cobra.Command, method restclient.Method, custom, target string, reqOpts *requestOptions) error {
	s, err := o.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", closeErr)
		}
	}()

	req, err := o.buildRequest(cmd, method, custom, target, reqOpts)
	if err != nil {
		return err
	}
	if req.Body != nil && !req.Headers.Has("Content-Type") {
		req.Headers = req.Headers.Set("Content-Type", s.client.Serializer().ContentType())
	}

	resp, err := s.client.Do(cmd.Context(), req)
	if err != nil {
		return err
	}

	if err := o.printResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s %s: %d %s", resp.Method, resp.RequestURL, resp.StatusCode, statusText(resp.StatusCode))
	}
	return nil
}

func (o *Options) buildRequest(cmd *cobra.Command, method restclient.Method, custom, target string, reqOpts *requestOptions) (*restclient.Request, error) {
	req := &restclient.Request{URL: target, Method: method, CustomMethod: custom}

	for _, raw := range o.Headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", raw)
		}
		req.Headers = req.Headers.Append(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if len(o.Query) > 0 {
		req.Query = url.Values{}
		for _, raw := range o.Query {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid query parameter %q: expected key=value", raw)
			}
			req.Query.Add(key, value)
		}
	}

	if reqOpts != nil && reqOpts.Data != "" {
		body, err := readData(cmd.InOrStdin(), reqOpts.Data)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}

	return req, nil
}

// readData resolves the --data value. The body is sent verbatim.
func readData(stdin io.Reader, data string) ([]byte, error) {
	switch {
	case data == "-":
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return body, nil
	case strings.HasPrefix(data, "@"):
		path := strings.TrimPrefix(data, "@")
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read body from %s: %w", path, err)
		}
		return body, nil
	default:
		return []byte(data), nil
	}
}

func (o *Options) printResponse(w io.Writer, resp *restclient.Response[[]byte]) error {
	var buf bytes.Buffer
	if o.Include {
		fmt.Fprintf(&buf, "HTTP %d %s\n", resp.StatusCode, statusText(resp.StatusCode))
		for name, values := range resp.Headers.All() {
			for _, v := range values {
				fmt.Fprintf(&buf, "%s: %s\n", name, v)
			}
		}
		buf.WriteByte('\n')
	}

	buf.Write(resp.RawBody)
	if len(resp.RawBody) > 0 && resp.RawBody[len(resp.RawBody)-1] != '\n' {
		buf.WriteByte('\n')
	}

	_, err := w.Write(buf.Bytes())
	return err
}
