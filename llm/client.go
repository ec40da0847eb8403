// Package llm is the request client that turns application-level chat
// and tool requests into provider API calls. It resolves per-call
// parameters from a named profile, retries transient provider failures
// with randomized exponential backoff, supports buffered and
// incrementally streamed responses, and tracks the monetary cost of
// every call on a per-client ledger.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/caravel-hq/caravel/config"
)

// Client is the public entry point for one resolved profile. The
// profile is immutable for the client's lifetime; construct clients
// through a Registry to get the one-instance-per-profile guarantee.
type Client struct {
	profile   config.Profile
	provider  Provider
	exec      *executor
	ledger    *Ledger
	catalog   *Catalog
	modelInfo *ModelInfo
	log       *slog.Logger
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithProvider overrides the outbound provider. Tests use this to
// substitute a double for the network.
func WithProvider(p Provider) ClientOption {
	return func(c *Client) { c.provider = p }
}

// WithCatalog overrides the pricing catalog.
func WithCatalog(cat *Catalog) ClientOption {
	return func(c *Client) { c.catalog = cat }
}

// WithLogger overrides the client's logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// New constructs a client for the given resolved profile. Model
// metadata is looked up best-effort: an unknown model logs a warning
// and leaves the metadata empty, never failing construction.
func New(p config.Profile, opts ...ClientOption) *Client {
	c := &Client{
		profile: p,
		ledger:  NewLedger(),
		catalog: DefaultCatalog(),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("profile", p.Name, "model", p.Model)
	if c.provider == nil {
		c.provider = newOpenAIProvider(p)
	}
	c.exec = newExecutor(c.provider, p, c.log)

	if info, ok := c.catalog.Lookup(p.Model); ok {
		c.modelInfo = &info
	} else {
		c.log.Warn("could not get model info", "model", p.Model)
	}
	return c
}

// Profile returns the resolved profile the client was built from.
func (c *Client) Profile() config.Profile { return c.profile }

// ModelInfo returns the model metadata resolved at construction, or nil
// when the model is not in the catalog.
func (c *Client) ModelInfo() *ModelInfo { return c.modelInfo }

// Ledger exposes the client's cost ledger.
func (c *Client) Ledger() *Ledger { return c.ledger }

// IsLocal reports whether the client targets a locally served model.
func (c *Client) IsLocal() bool { return c.profile.IsLocal() }

// askOptions collects per-call overrides for the facade entry points.
type askOptions struct {
	system      []any
	stream      bool
	onDelta     func(string)
	temperature *float64
	toolChoice  ToolChoice
}

// AskOption configures a single facade call.
type AskOption func(*askOptions)

// WithSystem prepends system messages (canonical or raw map form) to
// the conversation.
func WithSystem(msgs ...any) AskOption {
	return func(o *askOptions) { o.system = msgs }
}

// WithStreaming selects the incremental execution path.
func WithStreaming() AskOption {
	return func(o *askOptions) { o.stream = true }
}

// WithDelta selects the incremental path and observes each text
// fragment as it arrives.
func WithDelta(fn func(delta string)) AskOption {
	return func(o *askOptions) {
		o.stream = true
		o.onDelta = fn
	}
}

// WithTemperature overrides the profile's sampling temperature for this
// call only.
func WithTemperature(t float64) AskOption {
	return func(o *askOptions) { o.temperature = &t }
}

// WithToolChoice sets the tool-selection strategy for AskTool
// (default "auto").
func WithToolChoice(choice ToolChoice) AskOption {
	return func(o *askOptions) { o.toolChoice = choice }
}

// request assembles the provider request from the profile and per-call
// overrides, following the precedence: explicit override, then profile
// value, then hard-coded default (already folded into the profile).
func (c *Client) request(msgs []Message, o askOptions) Request {
	req := Request{
		Model:       c.profile.RoutedModel(),
		Messages:    msgs,
		MaxTokens:   c.profile.MaxTokens,
		Temperature: c.profile.Temperature,
		TopP:        c.profile.TopP,
	}
	if o.temperature != nil {
		req.Temperature = *o.temperature
	}
	return req
}

// Ask sends conversation messages (with optional prepended system
// messages) and returns the final response text. The execution mode is
// buffered unless WithStreaming or WithDelta selects the incremental
// path. Transient provider failures are retried at this boundary in
// addition to the executor's own policy.
func (c *Client) Ask(ctx context.Context, messages []any, opts ...AskOption) (string, error) {
	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := c.log.With("request_id", uuid.NewString())

	formatted, err := c.formatConversation(o.system, messages)
	if err != nil {
		log.Error("validation error", "error", err)
		return "", err
	}
	req := c.request(formatted, o)

	if o.stream {
		text, err := retryDo(ctx, log, facadePolicy, IsTransient, func() (string, error) {
			text, usage, err := c.exec.stream(ctx, req, o.onDelta)
			if err != nil {
				return "", err
			}
			if usage != nil {
				c.trackCost(log, req.Model, *usage)
			}
			return text, nil
		})
		if err != nil {
			c.logFailure(log, err)
			return "", err
		}
		return text, nil
	}

	resp, err := retryDo(ctx, log, facadePolicy, IsTransient, func() (*Response, error) {
		return c.exec.complete(ctx, req)
	})
	if err != nil {
		c.logFailure(log, err)
		return "", err
	}
	c.trackCost(log, req.Model, resp.Usage)

	if resp.Message.Content == "" {
		err := fmt.Errorf("%w: empty or invalid response from provider", ErrValidation)
		log.Error("validation error", "error", err)
		return "", err
	}
	return resp.Message.Content, nil
}

// AskTool sends the conversation with callable-tool declarations
// attached and returns the assistant's message, which may contain a
// tool invocation request instead of text. The tool choice strategy
// and every tool descriptor are validated before any network call.
func (c *Client) AskTool(ctx context.Context, messages []any, tools []ToolDef, opts ...AskOption) (*Message, error) {
	o := askOptions{toolChoice: ToolChoiceAuto}
	for _, opt := range opts {
		opt(&o)
	}
	log := c.log.With("request_id", uuid.NewString())

	if !o.toolChoice.valid() {
		err := fmt.Errorf("%w: invalid tool choice %q", ErrValidation, o.toolChoice)
		log.Error("validation error", "error", err)
		return nil, err
	}
	for _, tool := range tools {
		if tool.Type == "" {
			err := fmt.Errorf("%w: tool %q must carry a type field", ErrValidation, tool.Name)
			log.Error("validation error", "error", err)
			return nil, err
		}
	}

	formatted, err := c.formatConversation(o.system, messages)
	if err != nil {
		log.Error("validation error", "error", err)
		return nil, err
	}

	req := c.request(formatted, o)
	req.Tools = tools
	req.ToolChoice = o.toolChoice

	resp, err := retryDo(ctx, log, facadePolicy, IsTransient, func() (*Response, error) {
		return c.exec.completeOnce(ctx, req)
	})
	if err != nil {
		c.logFailure(log, err)
		return nil, err
	}
	c.trackCost(log, req.Model, resp.Usage)

	if !resp.Message.hasContent() {
		err := fmt.Errorf("%w: invalid or empty response from provider", ErrValidation)
		log.Error("validation error", "error", err)
		return nil, err
	}
	msg := resp.Message
	return &msg, nil
}

// AskImage sends a composite text+image message built from a local
// image file and returns the completed result with cost information.
// The image is embedded as a base64 data URI.
func (c *Client) AskImage(ctx context.Context, text, imagePath string) (*Result, error) {
	dataURI, err := EncodeImage(imagePath)
	if err != nil {
		return nil, err
	}
	msg := Message{
		Role: RoleUser,
		Parts: []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: dataURI},
		},
	}
	log := c.log.With("request_id", uuid.NewString())
	return retryDo(ctx, log, facadePolicy, IsTransient, func() (*Result, error) {
		return c.complete(ctx, log, c.request([]Message{msg}, askOptions{}))
	})
}

// Complete performs one buffered completion over already-canonical
// messages under the profile's retry policy, tracks its cost, and
// returns the response together with the per-call and accumulated cost.
func (c *Client) Complete(ctx context.Context, messages []Message, opts ...AskOption) (*Result, error) {
	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := c.log.With("request_id", uuid.NewString())
	return c.complete(ctx, log, c.request(messages, o))
}

func (c *Client) complete(ctx context.Context, log *slog.Logger, req Request) (*Result, error) {
	resp, err := c.exec.complete(ctx, req)
	if err != nil {
		c.logFailure(log, err)
		return nil, err
	}
	cost := c.trackCost(log, req.Model, resp.Usage)
	return &Result{
		Response:        resp,
		Cost:            cost,
		AccumulatedCost: c.ledger.Accumulated(),
	}, nil
}

// formatConversation normalizes optional system messages prepended to
// the conversation, both validated independently as the inputs arrive
// from different call sites.
func (c *Client) formatConversation(system, messages []any) ([]Message, error) {
	var out []Message
	if len(system) > 0 {
		sys, err := FormatMessages(system)
		if err != nil {
			return nil, err
		}
		out = append(out, sys...)
	}
	conv, err := FormatMessages(messages)
	if err != nil {
		return nil, err
	}
	return append(out, conv...), nil
}

// trackCost derives the monetary cost of a completed call and records
// it on the ledger. Cost-tracking failures never abort the request:
// they are logged as warnings and treated as zero.
func (c *Client) trackCost(log *slog.Logger, model string, usage Usage) float64 {
	cost, err := c.catalog.Cost(model, usage)
	if err != nil {
		log.Warn("cost calculation failed", "error", err)
		return 0
	}
	if cost > 0 {
		if err := c.ledger.Add(cost); err != nil {
			log.Warn("cost tracking failed", "error", err)
			return 0
		}
		log.Info("added cost",
			"cost_usd", fmt.Sprintf("%.6f", cost),
			"total_usd", fmt.Sprintf("%.6f", c.ledger.Accumulated()))
	}
	return cost
}

// logFailure logs a terminal call failure at the right level before the
// error propagates: validation errors and transient exhaustion are
// expected classes, anything else is unexpected.
func (c *Client) logFailure(log *slog.Logger, err error) {
	switch {
	case isValidation(err):
		log.Error("validation error", "error", err)
	case IsTransient(err):
		log.Error("transient error exhausted retries", "error", err)
	default:
		log.Error("unexpected completion error", "error", err)
	}
}

func isValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrMessageType)
}

// EncodeImage reads a local image file and returns it as a base64 data
// URI with a sniffed image MIME type (falling back to image/jpeg).
func EncodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
