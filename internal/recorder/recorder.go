// Package recorder implements the HAR-capture supplement: recording
// network activity into an HTTP Archive log while the session does
// other work, started and stopped by the caller rather than bounded by
// a fixed duration.
//
// Grounded on tomyan-hubcap's internal/chrome/network.go CaptureHAR,
// restructured from a single blocking call with a fixed capture
// duration into a start/stop pair driven off
// internal/domains.Network.SubscribeHAR, matching the rest of this
// module's subscribe-then-stop idiom instead of hubcap's one-shot
// timer loop.
package recorder

import (
	"sync"
	"time"

	"github.com/suziejprince/taiko/internal/domains"
)

// Log is an HTTP Archive log, the shape hubcap's HARLog produces.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Entries []Entry `json:"entries"`
}

// Creator names the tool that produced the log.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is one HTTP transaction.
type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Time            float64  `json:"time"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
	Timings         Timings  `json:"timings"`
}

// Request is one HAR request record.
type Request struct {
	Method      string   `json:"method"`
	URL         string   `json:"url"`
	HTTPVersion string   `json:"httpVersion"`
	Headers     []Header `json:"headers"`
	HeadersSize int      `json:"headersSize"`
	BodySize    int      `json:"bodySize"`
}

// Response is one HAR response record.
type Response struct {
	Status      int      `json:"status"`
	HTTPVersion string   `json:"httpVersion"`
	Headers     []Header `json:"headers"`
	Content     Content  `json:"content"`
	HeadersSize int      `json:"headersSize"`
	BodySize    int      `json:"bodySize"`
}

// Header is one name/value pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Content describes a response body, without the body itself.
type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
}

// Timings is the per-entry timing breakdown; only Wait is populated,
// matching hubcap's own placeholder Send/Receive of -1.
type Timings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

type inFlight struct {
	startedAt time.Time
	req       domains.HAREvent
	resp      *domains.HAREvent
}

// Recorder accumulates network events between Start and Stop.
type Recorder struct {
	mu       sync.Mutex
	entries  map[string]*inFlight
	order    []string
	stopFeed func()
	done     chan struct{}
}

// Start begins recording net on n. Call Stop to obtain the HAR log and
// release the underlying subscription.
func Start(n *domains.Network) *Recorder {
	ch, stop := n.SubscribeHAR()
	r := &Recorder{
		entries:  make(map[string]*inFlight),
		stopFeed: stop,
		done:     make(chan struct{}),
	}

	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				r.apply(ev)
			case <-r.done:
				return
			}
		}
	}()
	return r
}

func (r *Recorder) apply(ev domains.HAREvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The three stages reach Start's goroutine over separate CDP
	// subscriptions, so a response can arrive before its request; the
	// entry is created by whichever stage is seen first.
	f, ok := r.entries[ev.RequestID]
	if !ok {
		f = &inFlight{startedAt: time.Now()}
		r.entries[ev.RequestID] = f
		r.order = append(r.order, ev.RequestID)
	}
	switch ev.Stage {
	case "request":
		f.req = ev
	case "response":
		respCopy := ev
		f.resp = &respCopy
	case "finished":
		f.req.Timestamp = float64(time.Since(f.startedAt).Milliseconds())
	}
}

// Stop ends recording and returns the accumulated HAR log.
func (r *Recorder) Stop() *Log {
	close(r.done)
	r.stopFeed()

	r.mu.Lock()
	defer r.mu.Unlock()

	log := &Log{Version: "1.2", Creator: Creator{Name: "taiko", Version: "1.0"}}
	for _, id := range r.order {
		f := r.entries[id]
		entry := Entry{
			StartedDateTime: f.startedAt.Format(time.RFC3339Nano),
			Time:            f.req.Timestamp,
			Request: Request{
				Method:      f.req.Method,
				URL:         f.req.URL,
				HTTPVersion: "HTTP/1.1",
				Headers:     headerList(f.req.Headers),
				HeadersSize: -1,
				BodySize:    -1,
			},
			Response: Response{
				HTTPVersion: "HTTP/1.1",
				Content:     Content{Size: -1},
				HeadersSize: -1,
				BodySize:    -1,
			},
			Timings: Timings{Send: -1, Wait: -1, Receive: -1},
		}
		if f.resp != nil {
			entry.Response.Status = f.resp.Status
			entry.Response.Content.MimeType = f.resp.MimeType
			entry.Response.Headers = headerList(f.resp.Headers)
		}
		log.Entries = append(log.Entries, entry)
	}
	return log
}

func headerList(headers map[string]string) []Header {
	if len(headers) == 0 {
		return nil
	}
	list := make([]Header, 0, len(headers))
	for name, value := range headers {
		list = append(list, Header{Name: name, Value: value})
	}
	return list
}
