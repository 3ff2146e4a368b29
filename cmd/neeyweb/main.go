// neeyweb serves the dashboard standalone, for hosts that only watch the
// MQTT data without running the poller.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/juju/errors"

	"github.com/hrpv/neeytele/log2"
	"github.com/hrpv/neeytele/state"
	"github.com/hrpv/neeytele/web"
)

func main() {
	flagConfig := flag.String("config", "neeytele.hcl", "")
	flagListen := flag.String("listen", "", "overrides web.listen")
	flag.Parse()

	l := log2.NewStderr(log2.LInfo)
	if sdnotify("STATUS=init") {
		l.SetFlags(log2.LServiceFlags)
	} else {
		l.SetFlags(log2.LInteractiveFlags)
	}

	config := state.MustReadConfig(l, state.NewOsFullReader(""), *flagConfig)
	if config.LogDebug {
		l.SetLevel(log2.LDebug)
	}
	listen := config.Web.Listen
	if *flagListen != "" {
		listen = *flagListen
	}
	if listen == "" {
		listen = ":2222"
	}

	ws := web.NewServer(l, listen, config.Tele)
	if err := ws.Init(context.Background()); err != nil {
		l.Fatalf("%s", errors.ErrorStack(err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		l.Infof("signal=%v stopping", sig)
		ws.Close()
	}()

	sdnotify(daemon.SdNotifyReady)
	if err := ws.Run(); err != nil {
		l.Fatalf("%s", errors.ErrorStack(err))
	}
	l.Infof("goodbye")
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
