package cli

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/abduss/bugtrack/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultAPIURL = "http://localhost:5000/api"

type app struct {
	ui *UI
	v  *viper.Viper
}

// NewRootCommand builds the bugctl command tree writing to out and errOut.
// Flags may also be supplied as BUGCTL_* environment variables, e.g. BUGCTL_TOKEN.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{
		ui: &UI{Out: out, ErrOut: errOut},
		v:  viper.New(),
	}

	root := &cobra.Command{
		Use:           "bugctl",
		Short:         "Query and triage bugs from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.String("api-url", defaultAPIURL, "Bug tracker API base URL")
	flags.String("token", "", "Bearer token for authenticated APIs")
	flags.Duration("timeout", 10*time.Second, "Request timeout")

	a.v.SetEnvPrefix("BUGCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.listCommand(),
		a.showCommand(),
		a.statsCommand(),
		a.statusCommand(),
		a.loginCommand(),
	)
	return root
}

// Execute runs bugctl with the process arguments and returns the exit code.
func Execute() int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		ui := &UI{Out: os.Stdout, ErrOut: os.Stderr}
		ui.Error("%s", describe(err))
		return 1
	}
	return 0
}

func (a *app) client() *client.Client {
	return client.New(a.v.GetString("api-url"),
		client.WithToken(a.v.GetString("token")),
		client.WithHTTPClient(&http.Client{Timeout: a.v.GetDuration("timeout")}),
	)
}

// describe renders an error with its field messages, one per line.
func describe(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, f := range apiErr.Fields {
		b.WriteString("\n  " + f.Field + ": " + f.Message)
	}
	return b.String()
}
