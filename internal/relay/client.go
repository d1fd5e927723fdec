package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/cory-johannsen/skirmish/internal/game/command"
)

// Client is a replica's connection to a relay game. Send and Receive may be
// used from different goroutines, but each from only one at a time.
type Client struct {
	conn *websocket.Conn
	Slot string
}

// CreateGame asks the relay at baseURL for a new game code.
func CreateGame(ctx context.Context, baseURL string) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := post(ctx, baseURL+"/games", &out); err != nil {
		return "", fmt.Errorf("creating game: %w", err)
	}
	return out.Code, nil
}

// ClaimSlot claims slot in game code and returns its bearer token.
func ClaimSlot(ctx context.Context, baseURL, code, slot string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := post(ctx, fmt.Sprintf("%s/games/%s/slots/%s", baseURL, url.PathEscape(code), url.PathEscape(slot)), &out); err != nil {
		return "", fmt.Errorf("claiming %s: %w", slot, err)
	}
	return out.Token, nil
}

func post(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(nil))
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%s: %s", resp.Status, body.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Dial connects to game code as slot. baseURL is the relay's http(s) URL.
//
// Postcondition: the first messages received are the game's backlog in order.
func Dial(ctx context.Context, baseURL, code, slot, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing relay url: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = fmt.Sprintf("/games/%s/ws", code)
	u.RawQuery = url.Values{"slot": {slot}, "token": {token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing relay: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dialing relay: %w", err)
	}
	return &Client{conn: conn, Slot: slot}, nil
}

// Send submits cmd.
func (c *Client) Send(cmd command.Command) error {
	return c.conn.WriteJSON(cmd)
}

// Receive blocks for the next message from the relay.
func (c *Client) Receive() (Message, error) {
	var m Message
	if err := c.conn.ReadJSON(&m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
