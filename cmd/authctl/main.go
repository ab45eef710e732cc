// Command authctl is an interactive client for the chat auth API. The
// session cookie lives in memory, so it lasts for one run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	server := flag.String("server", "http://localhost:5001", "base URL of the API server")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(*server, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Same startup probe a browser client does on load.
	a.session.CheckAuth(ctx)

	a.run(ctx, bufio.NewReader(os.Stdin))
}
