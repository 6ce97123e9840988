package searchipc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dictdeck/dictdeck/internal/logging"
)

var ipcLog = logging.ForComponent(logging.CompIPC)

const (
	writeTimeout = 10 * time.Second

	// Incremental search fires on every keystroke; smooth it so a fast
	// typist can't flood the engine. Bursts cover normal typing.
	incrementalRate  = rate.Limit(20)
	incrementalBurst = 5
)

// request is the wire form of an engine command.
type request struct {
	ID     uint64          `json:"id"`
	Cmd    string          `json:"cmd"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the wire form of an engine reply.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// EngineError is a failure reported by the engine itself, as opposed to a
// transport failure.
type EngineError struct {
	Cmd     string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("searchipc: engine %s: %s", e.Cmd, e.Message)
}

// Client is a websocket Searcher talking to the native engine process.
// Safe for concurrent use; replies are matched to callers by request ID.
type Client struct {
	conn    *websocket.Conn
	limiter *rate.Limiter

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response
	closed  bool

	done chan struct{}
}

// Dial connects to the engine's websocket endpoint, e.g.
// "ws://127.0.0.1:48200/ipc".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("searchipc: dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		limiter: rate.NewLimiter(incrementalRate, incrementalBurst),
		pending: make(map[uint64]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	ipcLog.Info("engine connected", "url", url)
	return c, nil
}

// Close tears down the connection and fails all in-flight calls.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	close(c.done)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			select {
			case <-c.done:
			default:
				ipcLog.Warn("engine read failed", "error", err)
				_ = c.Close()
			}
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			// Reply for a caller that already gave up.
			continue
		}
		ch <- resp
	}
}

// call sends one command and waits for its reply or context cancellation.
func (c *Client) call(ctx context.Context, cmd string, params any, result any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("searchipc: encode %s params: %w", cmd, err)
		}
		raw = b
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrEngineClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(request{ID: id, Cmd: cmd, Params: raw})
	c.writeMu.Unlock()
	if err != nil {
		c.drop(id)
		return fmt.Errorf("searchipc: send %s: %w", cmd, err)
	}

	select {
	case <-ctx.Done():
		c.drop(id)
		return fmt.Errorf("searchipc: %s: %w", cmd, ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			return ErrEngineClosed
		}
		if resp.Error != "" {
			return &EngineError{Cmd: cmd, Message: resp.Error}
		}
		if result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("searchipc: decode %s result: %w", cmd, err)
			}
		}
		return nil
	}
}

func (c *Client) drop(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// SearchIncremental implements Searcher.
func (c *Client) SearchIncremental(ctx context.Context, query string) (SearchOrigin, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return SearchOrigin{}, fmt.Errorf("searchipc: search_incremental: %w", err)
	}
	var origin SearchOrigin
	err := c.call(ctx, "search_incremental", map[string]string{"query": query}, &origin)
	return origin, err
}

// FulltextSearch implements Searcher.
func (c *Client) FulltextSearch(ctx context.Context, query string) (SearchOrigin, error) {
	var origin SearchOrigin
	err := c.call(ctx, "fulltext_search", map[string]string{"query": query}, &origin)
	return origin, err
}

// ResultKeyList implements Searcher.
func (c *Client) ResultKeyList(ctx context.Context, startIndex int64, maxCount int) ([]KeyItem, error) {
	var items []KeyItem
	err := c.call(ctx, "get_result_key_list", map[string]int64{
		"start_index_no": startIndex,
		"max_count":      int64(maxCount),
	}, &items)
	return items, err
}

// GroupIndexes implements Searcher.
func (c *Client) GroupIndexes(ctx context.Context, index int64) ([]EntryGroup, error) {
	var groups []EntryGroup
	err := c.call(ctx, "get_group_indexes", map[string]int64{"index_no": index}, &groups)
	return groups, err
}

// EntryContent implements Searcher.
func (c *Client) EntryContent(ctx context.Context, ref EntryRef) (string, error) {
	var html string
	err := c.call(ctx, "get_entry_html", ref, &html)
	return html, err
}
