package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/msomdec/chit-chat/internal/client"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type app struct {
	session *client.Session
	out     io.Writer
}

// printNotifier shows session notifications on the terminal.
type printNotifier struct {
	w io.Writer
}

func (n printNotifier) Success(msg string) { fmt.Fprintln(n.w, msg) }
func (n printNotifier) Error(msg string)   { fmt.Fprintln(n.w, "error:", msg) }

func newApp(server string, out io.Writer) (*app, error) {
	s, err := client.New(server, client.WithNotifier(printNotifier{w: out}))
	if err != nil {
		return nil, err
	}
	return &app{session: s, out: out}, nil
}

// run reads commands until EOF or exit. Command errors have already been
// reported through the notifier, so the loop just carries on.
func (a *app) run(ctx context.Context, in *bufio.Reader) {
	for {
		fmt.Fprintf(a.out, "authctl (%s)> ", a.status())
		line, err := in.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			fmt.Fprintln(a.out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Fprintln(a.out, "Commands: signup, login, check, logout, avatar <file>, exit")
		case "signup":
			a.signup(ctx, in)
		case "login":
			a.login(ctx, in)
		case "check":
			if u, err := a.session.CheckAuth(ctx); err == nil {
				a.printUser(u)
			} else {
				fmt.Fprintln(a.out, "not logged in")
			}
		case "logout":
			a.session.Logout(ctx)
		case "avatar":
			if len(parts) != 2 {
				fmt.Fprintln(a.out, "usage: avatar <file>")
				continue
			}
			a.avatar(ctx, parts[1])
		case "exit", "quit":
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", parts[0])
		}
	}
}

func (a *app) status() string {
	if u := a.session.Snapshot().User; u != nil {
		return u.Email
	}
	return "anonymous"
}

func (a *app) signup(ctx context.Context, in *bufio.Reader) {
	name, err := prompt(in, a.out, "Full name: ")
	if err != nil {
		return
	}
	email, err := prompt(in, a.out, "Email: ")
	if err != nil {
		return
	}
	password, err := getPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	u, err := a.session.Signup(ctx, client.SignupRequest{FullName: name, Email: email, Password: password})
	if err == nil {
		a.printUser(u)
	}
}

func (a *app) login(ctx context.Context, in *bufio.Reader) {
	email, err := prompt(in, a.out, "Email: ")
	if err != nil {
		return
	}
	password, err := getPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	u, err := a.session.Login(ctx, email, password)
	if err == nil {
		a.printUser(u)
	}
}

func (a *app) avatar(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	if u, err := a.session.UpdateProfile(ctx, client.DataURL(data)); err == nil {
		fmt.Fprintln(a.out, "profile pic:", u.ProfilePic)
	}
}

func (a *app) printUser(u *client.User) {
	fmt.Fprintf(a.out, "%s <%s> id=%s", u.FullName, u.Email, u.ID)
	if u.ProfilePic != "" {
		fmt.Fprintf(a.out, " pic=%s", u.ProfilePic)
	}
	fmt.Fprintln(a.out)
}

func prompt(in *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPassword reads a password from the terminal without echo.
func getPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
