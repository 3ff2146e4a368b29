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

	"github.com/hrpv/neeytele/ble"
	"github.com/hrpv/neeytele/heltec"
	"github.com/hrpv/neeytele/log2"
	"github.com/hrpv/neeytele/poll"
	"github.com/hrpv/neeytele/state"
	"github.com/hrpv/neeytele/tele"
	"github.com/hrpv/neeytele/web"
)

func main() {
	flagConfig := flag.String("config", "neeytele.hcl", "")
	flagAddress := flag.String("address", "", "balancer MAC, overrides config")
	flag.Parse()

	l := log2.NewStderr(log2.LInfo)
	if sdnotify("STATUS=init") {
		// under systemd, journal adds timestamps
		l.SetFlags(log2.LServiceFlags)
	} else {
		l.SetFlags(log2.LInteractiveFlags)
	}
	l.Infof("hello")

	config := state.MustReadConfig(l, state.NewOsFullReader(""), *flagConfig)
	if config.LogDebug {
		l.SetLevel(log2.LDebug)
	}
	addr := config.BLE.Address
	if *flagAddress != "" {
		addr = *flagAddress
	}
	if addr == "" {
		l.Fatalf("ble.address is required, run neeyscan to find the balancer")
	}

	ctx := context.Background()

	teler := tele.New()
	if err := teler.Init(ctx, l, config.Tele); err != nil {
		l.Fatalf("%s", errors.ErrorStack(err))
	}

	per := ble.NewBluez(l)
	orch := &poll.Orchestrator{Addr: addr, Per: per, Log: l}
	poller := poll.NewPoller(orch, poll.PollerConfig{
		Interval:       config.PollInterval(),
		Settle:         config.PollSettle(),
		RequestTimeout: config.PollRequestTimeout(),
	}, func(di *heltec.DeviceInfo, ci *heltec.CellInfo) {
		if err := teler.Report(tele.NewReport(di, ci)); err != nil {
			l.Errorf("tele report err=%v", err)
		}
	}, l)

	if config.Web.Enable {
		listen := config.Web.Listen
		if listen == "" {
			listen = ":2222"
		}
		ws := web.NewServer(l, listen, config.Tele)
		if err := ws.Init(ctx); err != nil {
			l.Fatalf("%s", errors.ErrorStack(err))
		}
		defer ws.Close()
		go func() {
			if err := ws.Run(); err != nil {
				l.Errorf("web err=%v", err)
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		l.Infof("signal=%v stopping", sig)
		poller.Alive().Stop()
	}()

	sdnotify(daemon.SdNotifyReady)
	l.Infof("init complete, polling addr=%s every %s", addr, config.PollInterval())
	poller.Run()
	poller.Alive().Wait()
	teler.Close()
	l.Infof("goodbye")
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
