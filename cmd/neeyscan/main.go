// neeyscan finds NEEY/Heltec balancers advertising nearby and prints their
// address to put into ble.address.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/juju/errors"

	"github.com/hrpv/neeytele/ble"
	"github.com/hrpv/neeytele/log2"
)

func main() {
	flagTimeout := flag.Duration("timeout", 30*time.Second, "how long to scan")
	flag.Parse()

	l := log2.NewStderr(log2.LInfo)
	l.SetFlags(log2.LInteractiveFlags)
	l.Infof("scanning for %s, press the balancer's button if it does not show up", *flagTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	b := ble.NewBluez(l)
	count := 0
	err := b.Scan(ctx, func(r ble.ScanResult) {
		count++
		l.Infof("found address=%s name=%q rssi=%d service=%t", r.Address, r.Name, r.RSSI, r.HasService)
	})
	if err != nil {
		l.Fatalf("%s", errors.ErrorStack(err))
	}
	if count == 0 {
		l.Infof("no balancers found")
	}
}
