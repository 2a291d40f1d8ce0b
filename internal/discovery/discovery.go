// Package discovery advertises the daemon on the local network via mDNS
// and lets clients browse for it, grounding network.rs's initialize()
// (which registers the daemon's zeroconf service) and client/src/lib.rs's
// browsing helper on the client side.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type the daemon registers under and
	// clients browse for.
	ServiceType = "_raphy._tcp"

	// InstanceName is the daemon's advertised instance name.
	InstanceName = "Raphy"

	domain = "local."
)

// Advertiser owns the registered mDNS service record for the daemon's
// lifetime.
type Advertiser struct {
	logger *zap.Logger
	server *zeroconf.Server
}

// Advertise registers the daemon's TCP port under ServiceType/InstanceName.
// Call Shutdown to unregister it.
func Advertise(logger *zap.Logger, port int) (*Advertiser, error) {
	server, err := zeroconf.Register(InstanceName, ServiceType, domain, port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register the mdns service: %w", err)
	}

	logger.Info("advertising the daemon over mdns", zap.String("service", ServiceType), zap.String("instance", InstanceName), zap.Int("port", port))
	return &Advertiser{logger: logger, server: server}, nil
}

// Shutdown unregisters the mDNS service.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

// Instance is one advertised daemon found while browsing.
type Instance struct {
	Name      string
	AddrsIPv4 []string
	AddrsIPv6 []string
	Port      int
}

// Browse returns every Raphy instance seen on the local network within
// timeout, supplementing the Rust client's own use of this discovery
// mechanism.
func Browse(ctx context.Context, timeout time.Duration) ([]Instance, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build an mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var instances []Instance
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			inst := Instance{Name: entry.Instance, Port: entry.Port}
			for _, ip := range entry.AddrIPv4 {
				inst.AddrsIPv4 = append(inst.AddrsIPv4, ip.String())
			}
			for _, ip := range entry.AddrIPv6 {
				inst.AddrsIPv6 = append(inst.AddrsIPv6, ip.String())
			}
			instances = append(instances, inst)
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, ServiceType, domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mdns services: %w", err)
	}

	<-browseCtx.Done()
	<-done

	return instances, nil
}
