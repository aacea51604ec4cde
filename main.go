/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine/shell"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	cfg, err := shell.LoadConfig("prism.toml")
	if err != nil {
		panic(err)
	}

	sh, err := shell.New(cfg, testbed.NewTriangleSession())
	if err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		sh.Shutdown()
		os.Exit(0)
	}()

	if err := sh.Run(); err != nil {
		panic(err)
	}
	sh.Shutdown()
}
