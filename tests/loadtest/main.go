package main

import (
	"bufio"
	"fmt"
	json "github.com/goccy/go-json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// The daemon under test must have an "inet" channel pointing at feedAddr.
const (
	baseURL      = "http://127.0.0.1:8081"
	feedAddr     = "127.0.0.1:14590"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numStations  = 500
	feedRate     = 2000 // packets per second
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== aprsd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Stations: %d | Feed: %d pkt/s on %s\n\n", numStations, feedRate, feedAddr)

	var sent atomic.Int64
	ln, err := net.Listen("tcp", feedAddr)
	if err != nil {
		fmt.Printf("FAILED: cannot listen on %s: %s\n", feedAddr, err)
		return
	}
	defer ln.Close()
	go serveFeed(ln, &sent)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/channels")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: let the feed populate the store
	fmt.Println("\n--- Phase 1: Feeding packets ---")
	time.Sleep(testDuration)
	fmt.Printf("  Packets sent: %d\n", sent.Load())

	// Phase 2: Search load while the feed keeps running
	fmt.Println("\n--- Phase 2: Search load (patterns, prefixes, boxes) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doSearchPattern(rng)
		case r < 0.60:
			return doSearchPrefix(rng)
		case r < 0.90:
			return doSearchBox(rng)
		default:
			return doGetChannels()
		}
	})

	// Phase 3: Station lookups
	fmt.Println("\n--- Phase 3: Station lookups ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.9 {
			return doGetStation(rng)
		}
		return doGetChannels()
	})
	fmt.Printf("\nPackets sent in total: %d\n", sent.Load())
}

func callsign(n int) string {
	return fmt.Sprintf("LA%dT%c%c", n%10, 'A'+byte(n/10%26), 'A'+byte(n/260%26))
}

func aprsCoord(v float64, width int, pos, neg byte) string {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := int(v)
	return fmt.Sprintf("%0*d%05.2f%c", width, deg, (v-float64(deg))*60, hemi)
}

// serveFeed plays an APRS-IS server: it accepts the login line and streams
// position reports from numStations moving stations.
func serveFeed(ln net.Listener, sent *atomic.Int64) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			fmt.Fprintf(conn, "# aprsd loadtest feed\r\n")
			if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
				return
			}
			fmt.Fprintf(conn, "# logresp NOCALL unverified, server LOADTEST\r\n")

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			tick := time.NewTicker(time.Second / feedRate)
			defer tick.Stop()
			for range tick.C {
				n := rng.Intn(numStations)
				lat := 58 + float64(n%100)/20 + rng.Float64()*0.01
				lon := 5 + float64(n/100)*2 + rng.Float64()*0.01
				line := fmt.Sprintf("%s>APRS,TCPIP*,qAC,T2TEST:!%s/%s>Station %d\r\n",
					callsign(n), aprsCoord(lat, 2, 'N', 'S'), aprsCoord(lon, 3, 'E', 'W'), n)
				if _, err := io.WriteString(conn, line); err != nil {
					return
				}
				sent.Add(1)
			}
		}(conn)
	}
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

// get fetches url and, when out is non-nil, decodes the JSON body into it.
func get(endpoint, url string, ok int, out any) result {
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return result{endpoint, resp.StatusCode, lat, true}
		}
	}
	io.Copy(io.Discard, resp.Body)
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != ok}
}

func doSearchPattern(rng *rand.Rand) result {
	var out []json.RawMessage
	url := fmt.Sprintf("%s/stations?q=LA%dT*", baseURL, rng.Intn(10))
	return get("GET /stations?q", url, http.StatusOK, &out)
}

func doSearchPrefix(rng *rand.Rand) result {
	var out []json.RawMessage
	url := fmt.Sprintf("%s/stations?prefix=LA%d", baseURL, rng.Intn(10))
	return get("GET /stations?prefix", url, http.StatusOK, &out)
}

func doSearchBox(rng *rand.Rand) result {
	var out []json.RawMessage
	lat := 58 + rng.Float64()*4
	lon := 5 + rng.Float64()*8
	url := fmt.Sprintf("%s/stations?box=%.3f,%.3f,%.3f,%.3f", baseURL, lat+0.5, lon, lat, lon+1)
	return get("GET /stations?box", url, http.StatusOK, &out)
}

func doGetStation(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/station?id=%s", baseURL, callsign(rng.Intn(numStations)))
	r := get("GET /station", url, http.StatusOK, nil)
	// unheard stations answer 404
	if r.status == http.StatusNotFound {
		r.err = false
	}
	return r
}

func doGetChannels() result {
	var out []json.RawMessage
	return get("GET /channels", baseURL+"/channels", http.StatusOK, &out)
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
