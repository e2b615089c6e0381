package proxy

import (
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"jortega/reviewscout/helpers"
	"jortega/reviewscout/logger"
)

// ProxyManager interface for managing proxies
type ProxyManager interface {
	UpdateProxies() error
	GetFastestProxy() (*ProxyInfo, error)
	GetTopProxies(n int) []ProxyInfo
}

// ProxyInfo holds proxy information with latency
type ProxyInfo struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
}

// Manager keeps a small pool of verified SOCKS5 proxies the browser can
// route through. Candidates come from public lists and are kept only
// after a successful SOCKS5 handshake.
type Manager struct {
	mu             sync.RWMutex
	proxies        []ProxyInfo
	lastUpdate     time.Time
	updateInterval time.Duration
	targetCount    int
	log            *logger.Logger
}

var _ ProxyManager = (*Manager)(nil)

var proxySources = []string{
	"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/socks5.txt",
	"https://www.proxy-list.download/api/v1/get?type=socks5",
	"https://api.proxyscrape.com/v2/?request=get&protocol=socks5&timeout=10000&country=all&format=textplain",
}

// NewManager creates a proxy manager
func NewManager() *Manager {
	return &Manager{
		updateInterval: 30 * time.Minute,
		targetCount:    5,
		log:            logger.Component("proxy"),
	}
}

// UpdateProxies refreshes the pool when it is stale or empty
func (m *Manager) UpdateProxies() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastUpdate) < m.updateInterval && len(m.proxies) > 0 {
		return nil
	}

	candidates, err := fetchCandidates()
	if err != nil {
		if len(m.proxies) > 0 {
			m.log.Warn().Err(err).Msg("Keeping stale proxy pool, refresh failed")
			return nil
		}
		return err
	}

	working := testCandidates(candidates, m.targetCount)
	if len(working) == 0 && len(m.proxies) == 0 {
		return fmt.Errorf("no working proxies found")
	}
	if len(working) > 0 {
		m.proxies = working
	}
	m.lastUpdate = time.Now()

	m.log.Info().
		Int("count", len(m.proxies)).
		Dur("fastest", m.proxies[0].Latency).
		Msg("Proxy pool updated")
	return nil
}

// GetFastestProxy returns the lowest-latency verified proxy
func (m *Manager) GetFastestProxy() (*ProxyInfo, error) {
	m.mu.RLock()
	stale := time.Since(m.lastUpdate) > m.updateInterval
	m.mu.RUnlock()

	if stale {
		if err := m.UpdateProxies(); err != nil {
			m.log.Warn().Err(err).Msg("Proxy refresh failed")
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.proxies) == 0 {
		return nil, fmt.Errorf("no working proxies available")
	}
	proxy := m.proxies[0]
	return &proxy, nil
}

// GetTopProxies returns up to n proxies ordered by latency
func (m *Manager) GetTopProxies(n int) []ProxyInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > len(m.proxies) {
		n = len(m.proxies)
	}
	result := make([]ProxyInfo, n)
	copy(result, m.proxies[:n])
	return result
}

func fetchCandidates() ([]ProxyInfo, error) {
	for _, source := range proxySources {
		body, err := helpers.FetchSimply(source)
		if err != nil {
			continue
		}
		text := string(body)
		if strings.Contains(text, "<html") {
			// an error page, not a proxy list
			continue
		}
		if candidates := parseProxyList(text); len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, fmt.Errorf("failed to fetch proxies from all sources")
}

// parseProxyList reads host:port pairs, one per line
func parseProxyList(text string) []ProxyInfo {
	var proxies []ProxyInfo
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		host, portStr, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		ip := net.ParseIP(host)
		if ip == nil || !isPublicIPv4(ip) {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil || port < 80 || port > 65000 {
			continue
		}
		proxies = append(proxies, ProxyInfo{Host: host, Port: port})
	}
	return proxies
}

func isPublicIPv4(ip net.IP) bool {
	ipv4 := ip.To4()
	if ipv4 == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsMulticast() || ip.IsUnspecified() || ipv4[0] >= 240)
}

// testCandidates probes candidates concurrently until enough verified
// proxies are collected, then returns them sorted by latency
func testCandidates(candidates []ProxyInfo, target int) []ProxyInfo {
	var (
		mu      sync.Mutex
		working []ProxyInfo
	)

	batchSize := 50
	for i := 0; i < len(candidates) && len(working) < target*2; i += batchSize {
		end := i + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, 10)
		for _, candidate := range candidates[i:end] {
			wg.Add(1)
			go func(p ProxyInfo) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				latency, ok := probeSOCKS5(p.Host, p.Port)
				if !ok {
					return
				}
				p.Latency = latency
				p.LastTest = time.Now()
				mu.Lock()
				working = append(working, p)
				mu.Unlock()
			}(candidate)
		}
		wg.Wait()

		if len(working) >= target {
			break
		}
	}

	sort.Slice(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})
	if len(working) > target {
		working = working[:target]
	}
	return working
}

// probeSOCKS5 dials the proxy and runs the no-auth SOCKS5 greeting
func probeSOCKS5(host string, port int) (time.Duration, bool) {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 5*time.Second)
	if err != nil {
		return 0, false
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return 0, false
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return 0, false
	}
	if resp[0] != 0x05 || resp[1] != 0x00 {
		return 0, false
	}
	return time.Since(start), true
}
