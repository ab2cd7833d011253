// Package graphql is the client for the crowdfunding GraphQL API.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pledgeflow/internal/logx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// Client is the remote surface the view-models and use cases depend on.
type Client interface {
	StoredCards(ctx context.Context) ([]schema.StoredCard, error)
	DeletePaymentSource(ctx context.Context, paymentSourceID string) (schema.DeletePaymentSourceResult, error)
	CreateSetupIntent(ctx context.Context) (schema.SetupIntent, error)
	SavePaymentMethod(ctx context.Context, req schema.SavePaymentMethodRequest) (schema.StoredCard, error)
	UpdateUserPassword(ctx context.Context, req schema.UpdatePasswordRequest) (schema.UpdatePasswordResult, error)
	ShippingRules(ctx context.Context, reward schema.Reward) ([]schema.ShippingRule, error)
	TriggerThirdPartyEvent(ctx context.Context, input schema.TriggerThirdPartyEventInput) (schema.TriggerThirdPartyEventResult, error)
}

const maxBodyBytes = 4 << 20

// HTTPClient posts GraphQL requests to a single endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	log      pslog.Logger
}

// Options configures an HTTPClient.
type Options struct {
	Endpoint  string
	ClientID  string
	AppUUID   string
	UserAgent string
	Tokens    TokenSource
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    pslog.Logger
}

// NewHTTPClient returns a client whose requests pass through an Interceptor.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("graphql endpoint is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	interceptor, err := NewInterceptor(InterceptorConfig{
		Endpoint:  endpoint,
		ClientID:  opts.ClientID,
		AppUUID:   opts.AppUUID,
		UserAgent: opts.UserAgent,
		Tokens:    opts.Tokens,
		Base:      opts.Transport,
	})
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Transport: interceptor, Timeout: opts.Timeout},
		log:      logger.With("api", endpoint),
	}, nil
}

// StoredCards lists the user's saved payment sources.
func (c *HTTPClient) StoredCards(ctx context.Context) ([]schema.StoredCard, error) {
	var data StoredCardsData
	if err := c.do(ctx, OpStoredCards, nil, &data); err != nil {
		return nil, err
	}
	return data.Me.StoredCards.Nodes, nil
}

// DeletePaymentSource removes a saved payment source.
func (c *HTTPClient) DeletePaymentSource(ctx context.Context, paymentSourceID string) (schema.DeletePaymentSourceResult, error) {
	id, err := schema.NormalizePaymentSourceID(paymentSourceID)
	if err != nil {
		return schema.DeletePaymentSourceResult{}, err
	}
	var data DeletePaymentSourceData
	if err := c.do(ctx, OpDeletePaymentSource, DeletePaymentSourceVars{PaymentSourceID: id}, &data); err != nil {
		return schema.DeletePaymentSourceResult{}, err
	}
	return data.PaymentSourceDelete, nil
}

// CreateSetupIntent starts a card setup and returns its client secret.
func (c *HTTPClient) CreateSetupIntent(ctx context.Context) (schema.SetupIntent, error) {
	var data CreateSetupIntentData
	if err := c.do(ctx, OpCreateSetupIntent, nil, &data); err != nil {
		return schema.SetupIntent{}, err
	}
	return data.CreateSetupIntent, nil
}

// SavePaymentMethod stores the card confirmed through a setup intent.
func (c *HTTPClient) SavePaymentMethod(ctx context.Context, req schema.SavePaymentMethodRequest) (schema.StoredCard, error) {
	if strings.TrimSpace(req.IntentClientSecret) == "" {
		return schema.StoredCard{}, schema.ErrNoSetupIntent
	}
	var data SavePaymentMethodData
	vars := SavePaymentMethodVars{Reusable: req.Reusable, IntentClientSecret: req.IntentClientSecret}
	if err := c.do(ctx, OpSavePaymentMethod, vars, &data); err != nil {
		return schema.StoredCard{}, err
	}
	return data.CreatePaymentSource.PaymentSource, nil
}

// UpdateUserPassword sets a new account password.
func (c *HTTPClient) UpdateUserPassword(ctx context.Context, req schema.UpdatePasswordRequest) (schema.UpdatePasswordResult, error) {
	var data UpdatePasswordData
	vars := UpdatePasswordVars{
		CurrentPassword:      req.CurrentPassword,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	}
	if err := c.do(ctx, OpUpdateUserPassword, vars, &data); err != nil {
		return schema.UpdatePasswordResult{}, err
	}
	return data.UpdateUserAccount, nil
}

// ShippingRules returns the shipping rules of a reward.
func (c *HTTPClient) ShippingRules(ctx context.Context, reward schema.Reward) ([]schema.ShippingRule, error) {
	var data ShippingRulesData
	vars := ShippingRulesVars{RewardID: schema.EncodeRelayID("Reward", int64(reward.ID))}
	if err := c.do(ctx, OpShippingRules, vars, &data); err != nil {
		return nil, err
	}
	return data.Node.ShippingRules, nil
}

// TriggerThirdPartyEvent forwards an analytics event.
func (c *HTTPClient) TriggerThirdPartyEvent(ctx context.Context, input schema.TriggerThirdPartyEventInput) (schema.TriggerThirdPartyEventResult, error) {
	var data TriggerThirdPartyEventData
	if err := c.do(ctx, OpTriggerThirdPartyEvent, TriggerThirdPartyEventVars{Input: input}, &data); err != nil {
		return schema.TriggerThirdPartyEventResult{}, err
	}
	return data.TriggerThirdPartyEvent, nil
}

func (c *HTTPClient) do(ctx context.Context, op string, vars any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body := Request{OperationName: op, Query: Query(op)}
	if vars != nil {
		raw, err := json.Marshal(vars)
		if err != nil {
			return &APIError{Kind: ErrorDecode, Op: op, Err: err}
		}
		body.Variables = raw
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return &APIError{Kind: ErrorDecode, Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, buf)
	if err != nil {
		return &APIError{Kind: ErrorTransport, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log := c.log.With("op", op)
	if screen := logx.ScreenFromContext(ctx); screen != "" {
		log = log.With("screen", screen)
	}
	log.Debug("api request")
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("api request failed", "err", err)
		return &APIError{Kind: ErrorTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("api response read failed", "err", err)
		return &APIError{Kind: ErrorTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	if kind := KindForStatus(resp.StatusCode); kind != "" {
		apiErr := &APIError{Kind: kind, Op: op, Status: resp.StatusCode}
		var envelope ErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && len(envelope.ErrorMessages) > 0 {
			if envelope.HTTPCode == 0 {
				envelope.HTTPCode = resp.StatusCode
			}
			apiErr.Envelope = &envelope
		}
		log.Warn("api request rejected", "status", resp.StatusCode, "err", apiErr.Error(), "elapsed", time.Since(start))
		return apiErr
	}
	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Warn("api response decode failed", "err", err)
		return &APIError{Kind: ErrorDecode, Op: op, Status: resp.StatusCode, Err: err}
	}
	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		apiErr := &APIError{
			Kind:     ErrorGraphQL,
			Op:       op,
			Status:   resp.StatusCode,
			Envelope: &ErrorEnvelope{ErrorMessages: messages, HTTPCode: resp.StatusCode},
		}
		log.Warn("api request returned errors", "err", apiErr.Error(), "elapsed", time.Since(start))
		return apiErr
	}
	if out != nil && len(decoded.Data) > 0 {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			log.Warn("api data decode failed", "err", err)
			return &APIError{Kind: ErrorDecode, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode %s data: %w", op, err)}
		}
	}
	log.Info("api request ok", "elapsed", time.Since(start))
	return nil
}

var _ Client = (*HTTPClient)(nil)
