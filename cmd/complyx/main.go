// Command complyx is the command-line client for complyxd.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/complyx/complyx/pkg/sdk"
)

type app struct {
	addr   string
	user   string
	client sdk.ComplyX
	out    io.Writer
}

func (a *app) connect(cmd *cobra.Command, _ []string) error {
	for p := cmd; p != nil; p = p.Parent() {
		if p.Name() == "help" || p.Name() == "completion" {
			return nil
		}
	}
	if a.addr != "" {
		os.Setenv("COMPLYX_ADDR", a.addr)
	}
	if a.user != "" {
		os.Setenv("COMPLYX_USER", a.user)
	}
	c, err := sdk.NewFromEnv()
	if err != nil {
		return err
	}
	a.client = c
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *app) ok() error {
	_, err := fmt.Fprintln(a.out, "OK")
	return err
}

// decodeFile reads JSON from path, or from stdin when path is "-".
func decodeFile(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(v)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "complyx",
		Short:             "Comply-X command-line client",
		Long:              "complyx talks to a complyxd daemon.\n\nEnvironment:\n  COMPLYX_ADDR           daemon address (default " + sdk.DefaultAddr + ")\n  COMPLYX_USER           acting user id\n  COMPLYX_GATEWAY_TOKEN  shared gateway token\n  COMPLYX_INSECURE_TLS   accept the daemon's self-signed certificate",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.connect,
	}
	root.PersistentFlags().StringVar(&a.addr, "addr", "", "daemon address, overrides COMPLYX_ADDR")
	root.PersistentFlags().StringVarP(&a.user, "user", "u", "", "acting user id, overrides COMPLYX_USER")

	root.AddCommand(
		documentsCmd(a),
		transitionCmd(a),
		grantsCmd(a),
		permissionsCmd(a),
		auditCmd(a),
		settingsCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
