// Command pingclient brings up a static-IP stack on a raw network
// interface and pings a target host, reporting round-trip times. The
// target does not have to be on the local subnet; off-link traffic goes
// through the default gateway.
//
// Needs CAP_NET_RAW (or root) for the packet socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"etherstack/pkg/datalink"
	"etherstack/pkg/stack"
)

var (
	ifname   = flag.String("interface", "eth0", "network interface to attach to")
	address  = flag.String("address", "192.168.0.10", "static IPv4 address")
	netmask  = flag.String("netmask", "255.255.255.0", "subnet mask")
	gateway  = flag.String("gateway", "192.168.0.1", "default gateway")
	target   = flag.String("target", "192.168.1.2", "host to ping")
	count    = flag.Int("count", 0, "number of pings to send, 0 for unlimited")
	interval = flag.Duration("interval", time.Second, "pacing between pings")
	timeout  = flag.Duration("timeout", 3*time.Second, "per-ping reply deadline")
	poolSize = flag.Int("buffers", datalink.DefaultPoolSize, "receive buffer count")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
	dev, err := datalink.OpenPacketDevice(*ifname, *poolSize)
	if err != nil {
		return err
	}
	defer dev.Close()

	s := stack.New()
	if err := s.Initialise(stack.Params{
		Address:        *address,
		SubnetMask:     *netmask,
		DefaultGateway: *gateway,
		Device:         dev,
	}); err != nil {
		return err
	}

	s.SubscribeErrors(func(ev stack.ErrorEvent) {
		glog.Warningf("%s", ev)
	})
	s.SubscribeLink(func(ev stack.LinkEvent) {
		glog.Infof("link %s", ev.Status)
	})

	if err := s.Startup(); err != nil {
		return err
	}
	glog.Infof("%s up on %s (mask %s, gateway %s)", *address, *ifname, *netmask, *gateway)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(*interval), 1)
	for sent := 0; *count == 0 || sent < *count; sent++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		rtt, err := s.Ping(*target, *timeout)
		switch {
		case err == nil:
			fmt.Printf("reply from %s: time=%v\n", *target, rtt)
		case errors.Is(err, stack.ErrPingTimeout):
			fmt.Printf("request to %s timed out\n", *target)
		default:
			return err
		}
	}
	return nil
}
