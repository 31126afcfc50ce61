package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote machine service.
type Client struct {
	create  *connect.Client[CreateRequest, CreateResponse]
	feed    *connect.Client[FeedRequest, FeedResponse]
	run     *connect.Client[RunRequest, RunResponse]
	drain   *connect.Client[DrainRequest, DrainResponse]
	peek    *connect.Client[PeekRequest, PeekResponse]
	poke    *connect.Client[PokeRequest, PokeResponse]
	clone   *connect.Client[CloneRequest, CloneResponse]
	destroy *connect.Client[DestroyRequest, DestroyResponse]
	save    *connect.Client[SaveRequest, SaveResponse]
	restore *connect.Client[RestoreRequest, RestoreResponse]
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	cbor bool
	opts []connect.ClientOption
}

// WithCBOR makes the client encode messages as CBOR instead of JSON.
func WithCBOR() ClientOption {
	return func(c *clientConfig) { c.cbor = true }
}

// WithConnectOptions passes extra options to every underlying connect
// client.
func WithConnectOptions(opts ...connect.ClientOption) ClientOption {
	return func(c *clientConfig) { c.opts = append(c.opts, opts...) }
}

// NewClient creates a client for the service at baseURL, e.g.
// "http://localhost:4567".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...ClientOption) *Client {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var codec connect.Codec = jsonCodec{}
	if cfg.cbor {
		codec = newCBORCodec()
	}
	copts := append([]connect.ClientOption{connect.WithCodec(codec)}, cfg.opts...)
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		create:  connect.NewClient[CreateRequest, CreateResponse](httpClient, baseURL+CreateProcedure, copts...),
		feed:    connect.NewClient[FeedRequest, FeedResponse](httpClient, baseURL+FeedProcedure, copts...),
		run:     connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, copts...),
		drain:   connect.NewClient[DrainRequest, DrainResponse](httpClient, baseURL+DrainProcedure, copts...),
		peek:    connect.NewClient[PeekRequest, PeekResponse](httpClient, baseURL+PeekProcedure, copts...),
		poke:    connect.NewClient[PokeRequest, PokeResponse](httpClient, baseURL+PokeProcedure, copts...),
		clone:   connect.NewClient[CloneRequest, CloneResponse](httpClient, baseURL+CloneProcedure, copts...),
		destroy: connect.NewClient[DestroyRequest, DestroyResponse](httpClient, baseURL+DestroyProcedure, copts...),
		save:    connect.NewClient[SaveRequest, SaveResponse](httpClient, baseURL+SaveProcedure, copts...),
		restore: connect.NewClient[RestoreRequest, RestoreResponse](httpClient, baseURL+RestoreProcedure, copts...),
	}
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	return unary(ctx, c.create, req)
}

func (c *Client) Feed(ctx context.Context, req *FeedRequest) (*FeedResponse, error) {
	return unary(ctx, c.feed, req)
}

func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	return unary(ctx, c.run, req)
}

func (c *Client) Drain(ctx context.Context, req *DrainRequest) (*DrainResponse, error) {
	return unary(ctx, c.drain, req)
}

func (c *Client) Peek(ctx context.Context, req *PeekRequest) (*PeekResponse, error) {
	return unary(ctx, c.peek, req)
}

func (c *Client) Poke(ctx context.Context, req *PokeRequest) (*PokeResponse, error) {
	return unary(ctx, c.poke, req)
}

func (c *Client) Clone(ctx context.Context, req *CloneRequest) (*CloneResponse, error) {
	return unary(ctx, c.clone, req)
}

func (c *Client) Destroy(ctx context.Context, req *DestroyRequest) (*DestroyResponse, error) {
	return unary(ctx, c.destroy, req)
}

func (c *Client) Save(ctx context.Context, req *SaveRequest) (*SaveResponse, error) {
	return unary(ctx, c.save, req)
}

func (c *Client) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResponse, error) {
	return unary(ctx, c.restore, req)
}
