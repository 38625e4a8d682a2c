package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-ops-client/internal/app"
)

type requestOptions struct {
	method string
	data   string
	token  string
	strict bool
}

func newRequestCommand(root *rootOptions) *cobra.Command {
	opts := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "request <path>",
		Short: "Send a request and print the JSON payload",
		Example: `  opsctl request /users
  opsctl request /jobs -X POST -d '{"title":"SRE"}'
  opsctl -p talent request /candidates --token "$TALENT_TOKEN"
  opsctl request /import -X PUT -d @payload.json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.body(cmd.InOrStdin())
			if err != nil {
				return err
			}
			call := app.Call{
				Profile: root.profile,
				Path:    args[0],
				Method:  opts.method,
				Token:   strings.TrimSpace(opts.token),
				Strict:  opts.strict,
			}
			if body != nil {
				call.Body = body
			}

			return root.withConsole(cmd, func(c Console) error {
				payload, err := c.Call(cmd.Context(), call)
				if err != nil {
					return err
				}
				return root.write(cmd, payload)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON body, or @file (@- for stdin)")
	cmd.Flags().StringVar(&opts.token, "token", "", "send this token as the token query parameter instead of the stored credential")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on success bodies that do not parse as JSON")
	return cmd
}

// body resolves --data into a JSON payload. An empty flag means no body.
func (o *requestOptions) body(stdin io.Reader) (json.RawMessage, error) {
	data := strings.TrimSpace(o.data)
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		var err error
		raw, err = readInput(stdin, strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
	}
	if !json.Valid(raw) {
		return nil, usage("--data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
