package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/reportview/reportview/internal/config"
	"github.com/reportview/reportview/pkg/client"
)

func cmdLogin(apiCfg *config.API, stateCfg *config.State) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with the report password and store the session token",
		Action: func(ctx context.Context, c *cli.Command) error {
			if stateCfg.Ephemeral {
				return goerr.New("login needs a persistent session store; drop --ephemeral")
			}
			cl, err := apiCfg.Configure()
			if err != nil {
				return err
			}

			out := c.Root().Writer
			password, err := readPassword(c.Root().Reader, out)
			if err != nil {
				return err
			}
			if password == "" {
				return goerr.New("password is required")
			}

			token, err := cl.Login(ctx, password)
			if err != nil {
				if errors.Is(err, client.ErrAuth) {
					return goerr.Wrap(err, "password rejected")
				}
				return err
			}

			store, closeStore, err := stateCfg.OpenStore("")
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck
			if err := store.Set(token); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("signed in", "api", apiCfg.URL)
			fmt.Fprintln(out, "Signed in.") //nolint:errcheck
			return nil
		},
	}
}

func cmdLogout(stateCfg *config.State) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Clear the stored session token",
		Action: func(ctx context.Context, c *cli.Command) error {
			out := c.Root().Writer
			if stateCfg.Ephemeral {
				fmt.Fprintln(out, "Nothing to clear for an ephemeral session.") //nolint:errcheck
				return nil
			}
			store, closeStore, err := stateCfg.OpenStore("")
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck

			if _, ok := store.Get(); !ok {
				fmt.Fprintln(out, "Already signed out.") //nolint:errcheck
				return nil
			}
			if err := store.Clear(); err != nil {
				return err
			}
			ctxlog.From(ctx).Info("signed out")
			fmt.Fprintln(out, "Signed out.") //nolint:errcheck
			return nil
		},
	}
}

func cmdVersion() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Fprintln(c.Root().Writer, "reportview "+version) //nolint:errcheck
			return nil
		},
	}
}

// readPassword prompts on out and reads one line from in. Terminal input is
// read without echo.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ") //nolint:errcheck
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out) //nolint:errcheck
		if err != nil {
			return "", goerr.Wrap(err, "read password")
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", goerr.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
