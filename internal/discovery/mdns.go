// ABOUTME: mDNS service discovery for VBAN receivers
// ABOUTME: Advertises this sink as _vban._udp and lists other VBAN services
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type advertised for VBAN endpoints
const ServiceType = "_vban._udp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	StreamName  string // advertised in TXT as stream=
	InstanceID  string // advertised in TXT as id=
	Version     string
	Logger      *slog.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	log    *slog.Logger
	mu     sync.Mutex
	server *mdns.Server
}

// ServiceInfo describes a discovered VBAN service
type ServiceInfo struct {
	Name   string
	Host   string
	Port   int
	Stream string
	ID     string
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config: config,
		log:    logger.With("component", "discovery"),
	}
}

// TXT returns the TXT records advertised for this receiver
func (m *Manager) TXT() []string {
	txt := []string{"role=receiver"}
	if m.config.StreamName != "" {
		txt = append(txt, "stream="+m.config.StreamName)
	}
	if m.config.InstanceID != "" {
		txt = append(txt, "id="+m.config.InstanceID)
	}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise advertises this receiver via mDNS until Stop is called
func (m *Manager) Advertise() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return nil
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXT(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	m.log.Info("advertising mDNS service", "name", m.config.ServiceName, "port", m.config.Port, "type", ServiceType)
	return nil
}

// Stop withdraws the advertisement
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown()
	m.server = nil
	return err
}

// Browse queries the local network for VBAN services for up to timeout
func Browse(ctx context.Context, timeout time.Duration) ([]ServiceInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []ServiceInfo
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			found = append(found, serviceFromEntry(entry))
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Domain = "local"
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done

	if err != nil {
		return found, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

func serviceFromEntry(entry *mdns.ServiceEntry) ServiceInfo {
	info := ServiceInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Port: entry.Port,
	}
	if entry.AddrV4 != nil {
		info.Host = entry.AddrV4.String()
	} else {
		info.Host = entry.Host
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "stream":
			info.Stream = value
		case "id":
			info.ID = value
		}
	}
	return info
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
