package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/tech-monarch/ArtMintNFT/pkg/network"
	"github.com/tech-monarch/ArtMintNFT/pkg/version"
)

const (
	bridgeReadTimeout    = 60 * time.Second
	bridgeWriteTimeout   = 10 * time.Second
	bridgePingInterval   = 54 * time.Second
	defaultReconnectWait = 5 * time.Second
)

// ErrBadBridgeMessage is returned for bridge messages that cannot be turned into events
var ErrBadBridgeMessage = errors.New("bad bridge message")

// MessageSigner signs the bridge hello
type MessageSigner interface {
	Address() common.Address
	SignMessage(message string) (string, error)
}

// Bridge relays wallet notifications from a websocket feed
type Bridge struct {
	url           string
	signer        MessageSigner
	dialer        *websocket.Dialer
	reconnectWait time.Duration
}

// helloMessage identifies the client when the bridge connection opens
type helloMessage struct {
	Type      string `json:"type"`
	Client    string `json:"client"`
	Address   string `json:"address,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature,omitempty"`
}

// bridgeMessage is one wallet notification
type bridgeMessage struct {
	Event    string          `json:"event"`
	Accounts []string        `json:"accounts,omitempty"`
	ChainID  json.RawMessage `json:"chainId,omitempty"`
}

// NewBridge creates a bridge for url; signer may be nil
func NewBridge(url string, signer MessageSigner) *Bridge {
	return &Bridge{
		url:           url,
		signer:        signer,
		dialer:        websocket.DefaultDialer,
		reconnectWait: defaultReconnectWait,
	}
}

// WithReconnectWait sets the delay between reconnection attempts
func (b *Bridge) WithReconnectWait(d time.Duration) *Bridge {
	b.reconnectWait = d
	return b
}

// Run delivers events on out until ctx ends, reconnecting on connection loss
func (b *Bridge) Run(ctx context.Context, out chan<- network.Event) error {
	log := logger.WithField("bridge", b.url)

	for {
		err := b.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("⚠️ Wallet bridge disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.reconnectWait):
		}
	}
}

func (b *Bridge) session(ctx context.Context, out chan<- network.Event) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial wallet bridge: %w", err)
	}
	defer conn.Close()

	if err := b.hello(conn); err != nil {
		return err
	}
	logger.WithField("bridge", b.url).Info("🔌 Wallet bridge connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(bridgePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(bridgeWriteTimeout))
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(bridgeWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(bridgeReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(bridgeReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read bridge message: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(bridgeReadTimeout))

		ev, err := ParseBridgeMessage(data)
		if err != nil {
			logger.WithError(err).Debug("Ignoring bridge message")
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bridge) hello(conn *websocket.Conn) error {
	msg := helloMessage{
		Type:      "hello",
		Client:    version.UserAgent(),
		Timestamp: time.Now().Unix(),
	}
	if b.signer != nil {
		msg.Address = b.signer.Address().Hex()
		sig, err := b.signer.SignMessage(strconv.FormatInt(msg.Timestamp, 10))
		if err != nil {
			return fmt.Errorf("failed to sign bridge hello: %w", err)
		}
		msg.Signature = sig
	}

	conn.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send bridge hello: %w", err)
	}
	return nil
}

// ParseBridgeMessage turns an EIP-1193 style notification into an Event.
// chainId may be a hex string, a decimal string or a number.
func ParseBridgeMessage(data []byte) (network.Event, error) {
	var msg bridgeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return network.Event{}, fmt.Errorf("%w: %v", ErrBadBridgeMessage, err)
	}

	switch network.EventKind(msg.Event) {
	case network.AccountsChanged:
		accounts := make([]common.Address, 0, len(msg.Accounts))
		for _, a := range msg.Accounts {
			if !common.IsHexAddress(a) {
				return network.Event{}, fmt.Errorf("%w: invalid account %q", ErrBadBridgeMessage, a)
			}
			accounts = append(accounts, common.HexToAddress(a))
		}
		return network.Event{Kind: network.AccountsChanged, Accounts: accounts}, nil

	case network.ChainChanged:
		id, err := parseChainID(msg.ChainID)
		if err != nil {
			return network.Event{}, fmt.Errorf("%w: %v", ErrBadBridgeMessage, err)
		}
		return network.Event{Kind: network.ChainChanged, ChainID: id}, nil
	}

	return network.Event{}, fmt.Errorf("%w: unknown event %q", ErrBadBridgeMessage, msg.Event)
}

func parseChainID(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing chainId")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("invalid chainId %s", raw)
		}
		return n, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return network.ParseChainIDHex(strings.ToLower(s))
	}
	return strconv.ParseUint(s, 10, 64)
}
