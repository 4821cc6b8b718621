package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// wsSubscription implements Subscription over a gorilla/websocket
// connection. gorilla/websocket is otherwise unused elsewhere in this
// repo, so the Tip Follower's subscribe_new_heads path is its sole home.
type wsSubscription struct {
	conn   *websocket.Conn
	errc   chan error
	closed chan struct{}
}

func (s *wsSubscription) Err() <-chan error { return s.errc }

func (s *wsSubscription) Unsubscribe() {
	select {
	case <-s.closed:
		return
	default:
		close(s.closed)
	}
	_ = s.conn.Close()
}

type wsSubscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsSubscribeResponse struct {
	ID     int64  `json:"id"`
	Result string `json:"result"`
}

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string `json:"subscription"`
		Result       struct {
			Hash string `json:"hash"`
		} `json:"result"`
	} `json:"params"`
}

// SubscribeNewHeads opens RPC_WS_URL, issues eth_subscribe("newHeads"),
// and streams the hash of every new head notification until the
// subscription is dropped or Unsubscribe is called.
func (c *httpClient) SubscribeNewHeads(ctx context.Context) (<-chan Hash, Subscription, error) {
	if c.wsURL == "" {
		return nil, nil, transportErr("eth_subscribe", fmt.Errorf("no ws url configured"))
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, nil, transportErr("eth_subscribe", err)
	}

	req := wsSubscribeRequest{JSONRPC: "2.0", ID: c.reqID.Add(1), Method: "eth_subscribe", Params: []interface{}{"newHeads"}}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, nil, transportErr("eth_subscribe", err)
	}

	var ack wsSubscribeResponse
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, nil, decodeErr("eth_subscribe", err)
	}
	if ack.Result == "" {
		_ = conn.Close()
		return nil, nil, decodeErr("eth_subscribe", fmt.Errorf("empty subscription id"))
	}

	heads := make(chan Hash)
	sub := &wsSubscription{conn: conn, errc: make(chan error, 1), closed: make(chan struct{})}

	go func() {
		defer close(heads)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case sub.errc <- err:
				default:
				}
				return
			}
			var note wsNotification
			if err := json.Unmarshal(data, &note); err != nil {
				continue
			}
			if note.Method != "eth_subscription" || note.Params.Result.Hash == "" {
				continue
			}
			select {
			case heads <- note.Params.Result.Hash:
			case <-sub.closed:
				return
			}
		}
	}()

	return heads, sub, nil
}
