// Package main provides a probe and load tool for the realtime notification socket.
//
// Each client signs in, redeems a fresh ticket, connects with its last seen cursor and
// prints (or counts) the frames it receives. A dropped connection reconnects with the
// cursor it had reached so the server replays what was missed.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	Reconnects           int64
	PingsSent            int64
	FramesReceived       int64
	Notifications        int64
	Resyncs              int64
	Errors               int64
}

var metrics Metrics

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type probeConfig struct {
	host     string
	token    string
	verbose  bool
	interval time.Duration
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	email := flag.String("email", "root@shutterhub.local", "Probe user email")
	password := flag.String("password", "Shutter$Demo2024", "Probe user password")
	clients := flag.Int("clients", 1, "Number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "Probe duration (0 runs until interrupted)")
	cursor := flag.Int64("cursor", -1, "Replay notifications after this id on first connect (-1 disables replay)")
	interval := flag.Duration("ping", 10*time.Second, "Interval between ping commands")
	flag.Parse()

	log.Printf("🚀 Starting realtime probe")
	log.Printf("Target: %s", *host)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in successfully")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})
	cfg := probeConfig{
		host:     *host,
		token:    token,
		verbose:  *clients == 1,
		interval: *interval,
	}

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(cfg, i, *cursor, stopChan, &wg)
		time.Sleep(50 * time.Millisecond) // Stagger connections to spread ticket issuance
	}

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}
	select {
	case <-deadline:
		log.Println("⏱️  Probe duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

func login(host, email, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/api/auth/login", host)
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Tokens.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}

	return result.Tokens.AccessToken, nil
}

func getTicket(host, token string) (string, error) {
	ticketURL := fmt.Sprintf("http://%s/api/ws/ticket", host)
	req, err := http.NewRequest(http.MethodPost, ticketURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}

	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Ticket, nil
}

// runClient keeps one socket open until stopChan closes, reconnecting from the highest
// notification id it has seen.
func runClient(cfg probeConfig, id int, startCursor int64, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	cursor := startCursor
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			atomic.AddInt64(&metrics.Reconnects, 1)
			select {
			case <-stopChan:
				return
			case <-time.After(2 * time.Second):
			}
		}

		stopped := session(cfg, id, &cursor, stopChan)
		if stopped {
			return
		}
	}
}

// session runs one connection. It reports true when the probe is stopping.
func session(cfg probeConfig, id int, cursor *int64, stopChan <-chan struct{}) bool {
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	ticket, err := getTicket(cfg.host, cfg.token)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		log.Printf("[client %d] ticket: %v", id, err)
		return false
	}

	q := url.Values{"ticket": {ticket}}
	if c := atomic.LoadInt64(cursor); c >= 0 {
		q.Set("cursor", strconv.FormatInt(c, 10))
	}
	u := url.URL{Scheme: "ws", Host: cfg.host, Path: "/api/ws", RawQuery: q.Encode()}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		log.Printf("[client %d] dial: %v", id, err)
		return false
	}
	defer func() { _ = conn.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.FramesReceived, 1)
			handleFrame(cfg, id, raw, cursor)
		}
	}()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return true
		case <-done:
			log.Printf("[client %d] connection closed; reconnecting from cursor %d", id, atomic.LoadInt64(cursor))
			return false
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				return false
			}
			atomic.AddInt64(&metrics.PingsSent, 1)
		}
	}
}

func handleFrame(cfg probeConfig, id int, raw []byte, cursor *int64) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	switch f.Type {
	case "notification_created":
		atomic.AddInt64(&metrics.Notifications, 1)
		var p struct {
			ID uint `json:"id"`
		}
		if json.Unmarshal(f.Payload, &p) == nil {
			advance(cursor, int64(p.ID))
		}
	case "notifications_resync":
		atomic.AddInt64(&metrics.Resyncs, 1)
		var p struct {
			Cursor  uint `json:"cursor"`
			HasMore bool `json:"has_more"`
		}
		if json.Unmarshal(f.Payload, &p) == nil {
			advance(cursor, int64(p.Cursor))
			if p.HasMore && cfg.verbose {
				log.Printf("[client %d] replay truncated at cursor %d; refetch over HTTP", id, p.Cursor)
			}
		}
	case "error":
		atomic.AddInt64(&metrics.Errors, 1)
	}

	if cfg.verbose {
		log.Printf("[client %d] %s %s", id, f.Type, string(f.Payload))
	}
}

func advance(cursor *int64, seen int64) {
	for {
		cur := atomic.LoadInt64(cursor)
		if seen <= cur || atomic.CompareAndSwapInt64(cursor, cur, seen) {
			return
		}
	}
}

func printMetrics() {
	log.Println("\n📊 Probe Results")
	log.Println("================")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Reconnects: %d", atomic.LoadInt64(&metrics.Reconnects))
	log.Printf("Pings Sent: %d", atomic.LoadInt64(&metrics.PingsSent))
	log.Printf("Frames Received: %d", atomic.LoadInt64(&metrics.FramesReceived))
	log.Printf("Notifications: %d", atomic.LoadInt64(&metrics.Notifications))
	log.Printf("Resyncs: %d", atomic.LoadInt64(&metrics.Resyncs))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
