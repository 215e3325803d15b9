package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/ledgerops/go-console-auth/credentials"
	"github.com/ledgerops/go-console-auth/internal/config"
	"github.com/ledgerops/go-console-auth/invalidation"
	"github.com/ledgerops/go-console-auth/session"
	"github.com/ledgerops/go-console-auth/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running console: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	store := credentials.NewFileStore(c.GetCredentialsFile())
	client := transport.New(c.GetBackendURL(),
		transport.WithHTTPClient(&http.Client{Timeout: c.GetRequestTimeout()}),
		transport.WithLogger(logger),
	)

	terminated := make(chan struct{})
	mgr, err := session.NewManager(store, client,
		func(token invalidation.TokenFunc, sink invalidation.EventSink) (session.Channel, error) {
			return invalidation.New(c.GetBackendURL(), token, sink, invalidation.WithLogger(logger))
		},
		session.WithNavigator(consoleNavigator{logger}),
		session.WithNotifier(consoleNotifier{out: os.Stdout, terminated: terminated}),
		session.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}
	defer mgr.Close()

	ctx := context.Background()
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("mgr.Initialize: %w", err)
	}

	if !mgr.CheckAuth() {
		if err := interactiveLogin(ctx, mgr, client); err != nil {
			return err
		}
	}

	fmt.Println("Session established. Watching for duplicate logins; Ctrl-C to exit.")
	waitForStop(terminated)
	return nil
}

// interactiveLogin prompts for credentials and the CAPTCHA answer, retrying
// with a fresh challenge after each failed attempt.
func interactiveLogin(ctx context.Context, mgr *session.Manager, client *transport.Client) error {
	reader := bufio.NewReader(os.Stdin)
	for {
		captcha, err := client.FetchCaptcha(ctx)
		if err != nil {
			return fmt.Errorf("fetch captcha: %w", err)
		}
		fmt.Printf("Solve the CAPTCHA at: %s\n", captcha.ImageURL)

		email := prompt(reader, "Email: ")
		password := prompt(reader, "Password: ")
		answer := prompt(reader, "CAPTCHA answer: ")

		err = mgr.Login(ctx, email, password, captcha.Key, answer)
		if err == nil {
			return nil
		}
		if errors.Is(err, transport.InsufficientPrivilegeErr) {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("Login failed: %s\n", err)
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func waitForStop(terminated <-chan struct{}) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-terminated:
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// consoleNavigator renders the console's two navigation side effects as log
// lines; the CLI has no dashboard to switch to.
type consoleNavigator struct {
	log zerolog.Logger
}

func (n consoleNavigator) ToLogin() {
	n.log.Info().Str("destination", "login").Msg("navigate")
}

func (n consoleNavigator) ToDashboard() {
	n.log.Info().Str("destination", "dashboard").Msg("navigate")
}

// consoleNotifier prints the forced-logout notice and unblocks the main
// loop so the process exits.
type consoleNotifier struct {
	out        *os.File
	terminated chan struct{}
}

func (n consoleNotifier) SessionTerminated(reason string) {
	fmt.Fprintln(n.out, reason)
	close(n.terminated)
}
