package ble

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"tinygo.org/x/bluetooth"
)

// Known NEEY/Heltec/GiantKey/EnerKey advertised name prefixes.
var balancerNamePrefixes = []string{
	"GW-24S", // NEEY 4th gen, most common
	"GW-16S",
	"GW-8S",
	"GW-",
	"EK-24S",
	"EK-16S",
	"GK-24S",
	"Heltec",
	"NEEY",
}

type ScanResult struct {
	Address    string
	Name       string
	RSSI       int16
	HasService bool
}

// LooksLikeBalancer matches a scan result against the known name prefixes
// and the UART service UUID.
func LooksLikeBalancer(name string, hasService bool) bool {
	if hasService {
		return true
	}
	for _, prefix := range balancerNamePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Scan reports balancer-looking advertisements until ctx expires.
// Each device is reported once.
func (self *Bluez) Scan(ctx context.Context, found func(ScanResult)) error {
	if err := self.enable(); err != nil {
		return err
	}

	seen := make(map[string]struct{})
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = self.adapter.StopScan()
	}()
	defer close(stop)

	err := self.adapter.Scan(func(_ *bluetooth.Adapter, dev bluetooth.ScanResult) {
		name := dev.LocalName()
		hasService := dev.HasServiceUUID(serviceUUID)
		if !LooksLikeBalancer(name, hasService) {
			return
		}
		addr := dev.Address.String()
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		found(ScanResult{
			Address:    addr,
			Name:       name,
			RSSI:       dev.RSSI,
			HasService: hasService,
		})
	})
	return errors.Annotate(err, "ble scan")
}
