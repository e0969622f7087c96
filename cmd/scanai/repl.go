package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zombor/scanai/internal/capture"
	"github.com/zombor/scanai/internal/startup"
)

const replHelp = `Commands:
  scan (or Enter)  capture a frame and analyze it
  retry            probe the server again after a failure
  bind <source>    use a snapshot URL, image file or dir:<path> as the camera
  unbind           release the camera
  status           show server and camera state
  quit             exit`

// repl reads commands from in until quit, EOF or ctx is done
func (a *app) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, replHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if a.handle(ctx, strings.TrimSpace(line), out) {
				return nil
			}
		}
	}
}

// handle runs one command line and reports whether the loop should stop
func (a *app) handle(ctx context.Context, line string, out io.Writer) bool {
	command, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(command) {
	case "", "scan", "s":
		if a.controller.State() != startup.StateReady {
			fmt.Fprintln(out, "Server is not ready yet.")
			return false
		}
		a.track(a.pipeline.Trigger(ctx))
	case "retry", "r":
		if err := a.controller.Retry(ctx); errors.Is(err, startup.ErrNotFailed) {
			fmt.Fprintf(out, "Nothing to retry (server is %s).\n", a.controller.State())
		}
	case "bind":
		source := strings.TrimSpace(arg)
		if source == "" {
			fmt.Fprintln(out, "Usage: bind <source>")
			return false
		}
		dev, err := capture.OpenDevice(source, a.cfg.timeout)
		if err != nil {
			fmt.Fprintf(out, "Cannot open %s: %v\n", source, err)
			return false
		}
		a.session.Bind(dev)
		fmt.Fprintf(out, "Camera bound: %s\n", dev.Name())
	case "unbind":
		a.session.Unbind()
		fmt.Fprintln(out, "Camera released.")
	case "status":
		camera := "none"
		if dev, ok := a.session.Active(); ok {
			camera = dev.Name()
		}
		fmt.Fprintf(out, "Server: %s (%s)\nCamera: %s\n", a.controller.State(), a.client.BaseURL(), camera)
	case "help", "?":
		fmt.Fprintln(out, replHelp)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(out, "Unknown command %q. Type 'help'.\n", command)
	}
	return false
}
