/*
Vetrina runs the preview pipeline over an asset directory and serves
thumbnails to whoever listens on the event system. The testbed package
drives it as a small directory browser.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vetrina/engine"
	"github.com/spaghettifunk/vetrina/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	config := engine.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = engine.LoadConfig(*configPath)
		if err != nil {
			panic(err)
		}
	}

	eng, err := engine.New(config)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	browser := testbed.NewBrowser(eng, config.Assets.Dir)
	if err := browser.Start(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		eng.Stop()
	}()

	// run engine
	if err := eng.Run(); err != nil {
		panic(err)
	}

	if err := eng.Shutdown(); err != nil {
		panic(err)
	}
}
