// ABOUTME: mDNS discovery of ASR workers
// ABOUTME: Workers advertise _mindscribe-asr._tcp and clients browse for them
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

// ServiceType is the mDNS service advertised by ASR workers
const ServiceType = "_mindscribe-asr._tcp"

// Config holds discovery configuration
type Config struct {
	// ServiceName is the instance name advertised by a worker
	ServiceName string

	// Port is the worker's websocket port
	Port int

	// Path is the websocket endpoint, published as a TXT record
	Path string

	// Models are the model ids the worker can load, published as a TXT record
	Models []string

	Logger zerolog.Logger
}

// Manager advertises a worker and browses for others
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	workers chan *Worker

	mu     sync.Mutex
	server *mdns.Server
}

// Worker describes a discovered ASR worker
type Worker struct {
	Name   string   `json:"name"`
	Host   string   `json:"host"`
	Port   int      `json:"port"`
	Path   string   `json:"path"`
	Models []string `json:"models,omitempty"`
}

// Addr returns host:port
func (w *Worker) Addr() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(chan *Worker, 10),
	}
}

// TXTRecords returns the TXT fields advertised for this worker
func (m *Manager) TXTRecords() []string {
	txt := []string{}
	if m.config.Path != "" {
		txt = append(txt, "path="+m.config.Path)
	}
	if len(m.config.Models) > 0 {
		txt = append(txt, "models="+strings.Join(m.config.Models, ","))
	}
	return txt
}

// Advertise publishes this worker via mDNS until Stop is called
func (m *Manager) Advertise() error {
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
		m.TXTRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	m.config.Logger.Info().
		Str("service", m.config.ServiceName).
		Int("port", m.config.Port).
		Str("type", ServiceType).
		Msg("advertising mDNS service")

	go func() {
		<-m.ctx.Done()
		_ = server.Shutdown()
	}()

	return nil
}

// Browse continuously searches for workers, delivering them on Workers()
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		for _, w := range query(3 * time.Second) {
			m.config.Logger.Debug().Str("name", w.Name).Str("addr", w.Addr()).Msg("discovered ASR worker")
			select {
			case m.workers <- w:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// Workers returns the channel of discovered workers
func (m *Manager) Workers() <-chan *Worker {
	return m.workers
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// Discover runs one query for timeout and returns the workers found,
// deduplicated by address. It returns early with ctx's error when ctx ends.
func Discover(ctx context.Context, timeout time.Duration) ([]*Worker, error) {
	done := make(chan []*Worker, 1)
	go func() { done <- query(timeout) }()

	select {
	case workers := <-done:
		return workers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func query(timeout time.Duration) []*Worker {
	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []*Worker, 1)

	go func() {
		seen := make(map[string]bool)
		var workers []*Worker
		for entry := range entries {
			w := workerFromEntry(entry)
			if w == nil || seen[w.Addr()] {
				continue
			}
			seen[w.Addr()] = true
			workers = append(workers, w)
		}
		collected <- workers
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}
	_ = mdns.Query(params)
	close(entries)

	return <-collected
}

// workerFromEntry converts an mDNS entry, returning nil for entries of other
// services or without a usable address
func workerFromEntry(entry *mdns.ServiceEntry) *Worker {
	if entry == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	host := ""
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		host = strings.TrimSuffix(entry.Host, ".")
	}
	if host == "" || entry.Port == 0 {
		return nil
	}

	w := &Worker{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: host,
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			w.Path = value
		case "models":
			if value != "" {
				w.Models = strings.Split(value, ",")
			}
		}
	}
	return w
}

// getLocalIPs returns non-loopback IPv4 addresses of up interfaces
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
