package bitquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/observability"
)

// State is the observable stream consumer state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingAck
	StateSubscribed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// StreamConfig configures StreamConsumer behavior.
type StreamConfig struct {
	// InitialBackoff is the first reconnect delay.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling reconnect delay.
	MaxBackoff time.Duration
	// HandshakeTimeout bounds the connection_init/connection_ack exchange.
	HandshakeTimeout time.Duration
	// EventBuffer is the capacity of the outgoing event channel.
	EventBuffer int
}

// DefaultStreamConfig returns the default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		InitialBackoff:   5 * time.Second,
		MaxBackoff:       60 * time.Second,
		HandshakeTimeout: 30 * time.Second,
		EventBuffer:      1024,
	}
}

// NextBackoff doubles the delay up to the cap.
func NextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// reconnectDelay returns the wait before the next dial attempt and the
// backoff carried into the cycle after it. A cycle that reached
// Subscribed restarts the progression from the initial delay.
func (c StreamConfig) reconnectDelay(current time.Duration, subscribed bool) (wait, next time.Duration) {
	if subscribed {
		current = c.InitialBackoff
	}
	return current, NextBackoff(current, c.MaxBackoff)
}

// StreamOptions contains configuration for creating a StreamConsumer.
type StreamOptions struct {
	Endpoint     string
	Token        string
	Subscription string // subscription document; defaults to TransferSubscription
	Config       *StreamConfig
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// StreamConsumer maintains a long-lived graphql-ws subscription and
// decodes data frames into TransferEvents. It reconnects indefinitely
// with exponential backoff; only context cancellation stops it.
type StreamConsumer struct {
	endpoint     string
	token        string
	subscription string
	cfg          StreamConfig
	dialer       *websocket.Dialer
	logger       *log.Logger
	metrics      *observability.Metrics

	state  atomic.Int32
	events chan *domain.TransferEvent
}

// NewStreamConsumer creates a stream consumer. Run must be called to
// start the subscription loop.
func NewStreamConsumer(opts StreamOptions) *StreamConsumer {
	cfg := DefaultStreamConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 5 * time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1024
	}

	subscription := opts.Subscription
	if subscription == "" {
		subscription = TransferSubscription
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &StreamConsumer{
		endpoint:     opts.Endpoint,
		token:        opts.Token,
		subscription: subscription,
		cfg:          cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"graphql-ws"},
		},
		logger:  logger,
		metrics: opts.Metrics,
		events:  make(chan *domain.TransferEvent, cfg.EventBuffer),
	}
}

// Events returns the channel of decoded transfer events. The channel is
// closed when Run returns.
func (s *StreamConsumer) Events() <-chan *domain.TransferEvent {
	return s.events
}

// State returns the current consumer state.
func (s *StreamConsumer) State() State {
	return State(s.state.Load())
}

func (s *StreamConsumer) setState(st State) {
	s.state.Store(int32(st))
	if s.metrics != nil {
		s.metrics.StreamState.Set(float64(st))
	}
}

// Run drives the subscription loop until ctx is cancelled. It never
// returns on upstream failure: every broken connection is retried after
// a doubling delay that resets once a subscription is established.
func (s *StreamConsumer) Run(ctx context.Context) error {
	defer close(s.events)
	defer s.setState(StateDisconnected)

	backoff := s.cfg.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		subscribed, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.setState(StateDisconnected)
		if s.metrics != nil {
			s.metrics.StreamReconnects.Inc()
		}
		wait, next := s.cfg.reconnectDelay(backoff, subscribed)
		s.logger.Printf("stream disconnected: %v; reconnecting in %v", err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff = next
	}
}

// graphql-ws frame types.
const (
	frameConnectionInit = "connection_init"
	frameConnectionAck  = "connection_ack"
	frameStart          = "start"
	frameData           = "data"
	frameKeepAlive      = "ka"
	frameError          = "error"
	frameComplete       = "complete"
)

type wsFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// runOnce performs one connect/handshake/subscribe/read cycle. It
// returns whether the Subscribed state was reached, and the error that
// broke the cycle.
func (s *StreamConsumer) runOnce(ctx context.Context) (bool, error) {
	s.setState(StateConnecting)

	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, authHeaders(s.token))
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.setState(StateAwaitingAck)

	deadline := time.Now().Add(s.cfg.HandshakeTimeout)
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(wsFrame{Type: frameConnectionInit}); err != nil {
		return false, fmt.Errorf("send connection_init: %w", err)
	}

	conn.SetReadDeadline(deadline)
	var ack wsFrame
	if err := conn.ReadJSON(&ack); err != nil {
		return false, fmt.Errorf("read handshake ack: %w", err)
	}
	if ack.Type != frameConnectionAck {
		return false, fmt.Errorf("unexpected handshake frame %q", ack.Type)
	}

	startPayload, err := json.Marshal(queryRequest{Query: s.subscription, Variables: map[string]interface{}{}})
	if err != nil {
		return false, fmt.Errorf("marshal subscription: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	if err := conn.WriteJSON(wsFrame{Type: frameStart, ID: "1", Payload: startPayload}); err != nil {
		return false, fmt.Errorf("send start: %w", err)
	}

	s.setState(StateSubscribed)
	s.logger.Printf("stream subscribed to %s", s.endpoint)

	return true, s.readFrames(ctx, conn)
}

// readFrames reads data frames until the channel breaks. A malformed
// frame is skipped; only a transport-level read error or an explicit
// complete ends the cycle.
func (s *StreamConsumer) readFrames(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn.SetReadDeadline(time.Time{})
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		var frame wsFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.skipMalformed("frame", err)
			continue
		}

		switch frame.Type {
		case frameKeepAlive, frameConnectionAck:
			continue
		case frameError:
			// Subscription-level error frame: the channel itself is
			// still alive, log and keep reading.
			s.logger.Printf("stream error frame: %s", string(frame.Payload))
			continue
		case frameComplete:
			return errors.New("subscription completed by server")
		case frameData:
			if err := s.dispatch(ctx, frame.Payload); err != nil {
				return err
			}
		default:
			s.skipMalformed("frame type "+frame.Type, nil)
		}
	}
}

// subscriptionPayload is the data frame body for TransferSubscription.
type subscriptionPayload struct {
	Data struct {
		Solana struct {
			TokenTransfers []tokenTransferItem `json:"TokenTransfers"`
		} `json:"Solana"`
	} `json:"data"`
	Errors []QueryError `json:"errors"`
}

type tokenTransferItem struct {
	Transfer struct {
		Amount Float `json:"Amount"`
		Sender struct {
			Address string `json:"Address"`
		} `json:"Sender"`
		Receiver struct {
			Address string `json:"Address"`
		} `json:"Receiver"`
		Currency struct {
			MintAddress string `json:"MintAddress"`
			Name        string `json:"Name"`
			Symbol      string `json:"Symbol"`
		} `json:"Currency"`
	} `json:"Transfer"`
	Transaction struct {
		Hash string `json:"Hash"`
	} `json:"Transaction"`
	Block struct {
		Time   string `json:"Time"`
		Height int64  `json:"Height"`
	} `json:"Block"`
}

// dispatch decodes a data frame payload and hands the events off.
// Decode failures skip the frame; only cancellation stops dispatch.
func (s *StreamConsumer) dispatch(ctx context.Context, payload json.RawMessage) error {
	var body subscriptionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		s.skipMalformed("data payload", err)
		return nil
	}
	if len(body.Errors) > 0 {
		s.logger.Printf("stream data frame carries errors: %s", body.Errors[0].Message)
		return nil
	}

	if s.metrics != nil {
		s.metrics.FramesDecoded.Inc()
	}

	for _, item := range body.Data.Solana.TokenTransfers {
		if item.Transaction.Hash == "" {
			s.skipMalformed("transfer without tx hash", nil)
			continue
		}

		event := &domain.TransferEvent{
			TxHash:      item.Transaction.Hash,
			BlockTime:   ParseBlockTime(item.Block.Time),
			BlockHeight: item.Block.Height,
			Sender:      item.Transfer.Sender.Address,
			Receiver:    item.Transfer.Receiver.Address,
			Amount:      item.Transfer.Amount.Value(),
			MintAddress: item.Transfer.Currency.MintAddress,
			TokenName:   item.Transfer.Currency.Name,
			TokenSymbol: item.Transfer.Currency.Symbol,
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *StreamConsumer) skipMalformed(what string, err error) {
	if s.metrics != nil {
		s.metrics.MalformedFrames.Inc()
	}
	if err != nil {
		s.logger.Printf("skipping malformed %s: %v", what, err)
	} else {
		s.logger.Printf("skipping malformed %s", what)
	}
}
