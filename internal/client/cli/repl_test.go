package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) WhoAmI(ctx context.Context) error { f.calls = append(f.calls, "whoami"); return nil }
func (f *fakeExec) Profile(ctx context.Context) error {
	f.calls = append(f.calls, "profile")
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return fmt.Errorf("boom")
}
func (f *fakeExec) Extend(ctx context.Context) error { f.calls = append(f.calls, "extend"); return nil }

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"",
		"status",
		"whoami",
		"profile",
		"refresh",
		"extend",
		"foobar",
		"logout",
		"exit",
		"register",
	}, "\n"))

	exec := &fakeExec{loggedIn: false}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	want := []string{"login", "status", "whoami", "profile", "refresh", "extend", "logout"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", exec.calls, want)
	}
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.NewReader("help\nlogin\nhelp\nquit\n")
	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewScanner(input))

	var help []string
	for _, l := range *lines {
		if strings.HasPrefix(l, "Available commands") {
			help = append(help, l)
		}
	}
	if len(help) != 2 {
		t.Fatalf("want 2 help lines, got %v", help)
	}
	if strings.Contains(help[0], "logout") || !strings.Contains(help[0], "register") {
		t.Fatalf("logged-out help: %q", help[0])
	}
	if !strings.Contains(help[1], "extend") || strings.Contains(help[1], "register") {
		t.Fatalf("logged-in help: %q", help[1])
	}
}

func TestRunREPL_UnknownCommandAndQuit(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.NewReader("get 42\nquit\nlogin\n")
	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	joined := strings.Join(*lines, "\n")
	if !strings.Contains(joined, "Unknown command:get") {
		t.Fatalf("missing unknown command message in %q", joined)
	}
	if !strings.Contains(joined, "Bye!") {
		t.Fatalf("missing goodbye in %q", joined)
	}
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	capturePrintln(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("login\n")))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
