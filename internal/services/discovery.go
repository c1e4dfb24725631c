package services

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DetectLocalIP returns the first non-loopback IPv4 address.
func DetectLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("no local IPv4 address found")
}

func probePort(ip string, port int) bool {
	addr := fmt.Sprintf("%s:%d", ip, port)
	conn, err := net.DialTimeout("tcp", addr, 300*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// DiscoverPrinters scans the local /24 subnet for hosts accepting raw print
// port connections and returns their IPs, sorted.
func DiscoverPrinters(port int, logger *zap.Logger) ([]string, error) {
	localIP, err := DetectLocalIP()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(localIP, ".")
	subnet := strings.Join(parts[:3], ".")
	logger.Info("scanning subnet for printers",
		zap.String("subnet", subnet+".0/24"),
		zap.Int("port", port))

	ipChan := make(chan string, 256)
	foundChan := make(chan string, 256)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ip := range ipChan {
				if probePort(ip, port) {
					foundChan <- ip
				}
			}
		}()
	}

	for i := 1; i <= 254; i++ {
		ipChan <- fmt.Sprintf("%s.%d", subnet, i)
	}
	close(ipChan)

	go func() {
		wg.Wait()
		close(foundChan)
	}()

	var found []string
	for ip := range foundChan {
		logger.Info("printer found", zap.String("ip", ip))
		found = append(found, ip)
	}
	sort.Strings(found)
	return found, nil
}
