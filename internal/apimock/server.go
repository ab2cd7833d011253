// Package apimock serves an in-memory stand-in for the crowdfunding API.
package apimock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

const maxBodyBytes = 1 << 20

// Server routes API and tracking requests to a State.
type Server struct {
	state *State
	log   pslog.Logger
}

// NewServer wraps state.
func NewServer(state *State, logger pslog.Logger) *Server {
	if state == nil {
		state = NewState()
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{state: state, log: logger}
}

// State returns the backing state.
func (s *Server) State() *State {
	return s.state
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/graphql", s.handleGraphQL).Methods(http.MethodPost)
	r.HandleFunc("/track", s.handleTrack).Methods(http.MethodPost)
	r.Use(s.withRequestLogging)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, err.Error())
		return
	}
	status := s.state.nextTrack(body)
	if status >= 200 && status < 300 {
		writeJSON(w, status, map[string]any{"ok": true})
		return
	}
	writeEnvelope(w, status, http.StatusText(status))
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphql.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "malformed request")
		return
	}
	op := strings.TrimSpace(req.OperationName)
	log := pslog.Ctx(r.Context()).With("op", op)
	if failure, ok := s.state.nextFailure(op); ok {
		log.Debug("mock scripted failure", "status", failure.Status)
		if failure.Status == http.StatusOK {
			writeGraphQLErrors(w, failure.Messages...)
			return
		}
		writeEnvelope(w, failure.Status, failure.Messages...)
		return
	}
	token := r.URL.Query().Get("oauth_token")
	data, err := s.dispatch(op, token, req.Variables)
	if err != nil {
		var msg userMessage
		switch {
		case errors.Is(err, errLoggedOut):
			writeEnvelope(w, http.StatusUnauthorized, err.Error())
		case errors.As(err, &msg):
			writeGraphQLErrors(w, msg.Error())
		case errors.Is(err, schema.ErrInvalidRequest):
			writeEnvelope(w, http.StatusBadRequest, err.Error())
		default:
			log.Warn("mock operation failed", "err", err)
			writeEnvelope(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, graphql.Response{Data: raw})
}

func (s *Server) dispatch(op, token string, vars json.RawMessage) (any, error) {
	switch op {
	case graphql.OpStoredCards:
		user, ok := s.state.User(token)
		if !ok {
			return nil, errLoggedOut
		}
		var data graphql.StoredCardsData
		data.Me.StoredCards.Nodes = s.state.Cards(user.ID)
		if data.Me.StoredCards.Nodes == nil {
			data.Me.StoredCards.Nodes = []schema.StoredCard{}
		}
		return data, nil
	case graphql.OpDeletePaymentSource:
		var in graphql.DeletePaymentSourceVars
		if err := decodeVars(vars, &in); err != nil {
			return nil, err
		}
		res, err := s.state.deleteCard(token, in.PaymentSourceID)
		if err != nil {
			return nil, err
		}
		return graphql.DeletePaymentSourceData{PaymentSourceDelete: res}, nil
	case graphql.OpCreateSetupIntent:
		intent, err := s.state.createIntent(token)
		if err != nil {
			return nil, err
		}
		return graphql.CreateSetupIntentData{CreateSetupIntent: intent}, nil
	case graphql.OpSavePaymentMethod:
		var in graphql.SavePaymentMethodVars
		if err := decodeVars(vars, &in); err != nil {
			return nil, err
		}
		card, err := s.state.saveCard(token, in.IntentClientSecret)
		if err != nil {
			return nil, err
		}
		var data graphql.SavePaymentMethodData
		data.CreatePaymentSource.PaymentSource = card
		return data, nil
	case graphql.OpUpdateUserPassword:
		var in graphql.UpdatePasswordVars
		if err := decodeVars(vars, &in); err != nil {
			return nil, err
		}
		res, err := s.state.updatePassword(token, schema.UpdatePasswordRequest{
			CurrentPassword:      in.CurrentPassword,
			Password:             in.Password,
			PasswordConfirmation: in.PasswordConfirmation,
		})
		if err != nil {
			return nil, err
		}
		return graphql.UpdatePasswordData{UpdateUserAccount: res}, nil
	case graphql.OpShippingRules:
		var in graphql.ShippingRulesVars
		if err := decodeVars(vars, &in); err != nil {
			return nil, err
		}
		_, id, err := schema.DecodeRelayID(in.RewardID)
		if err != nil {
			return nil, err
		}
		var data graphql.ShippingRulesData
		data.Node.ShippingRules = s.state.shippingRules(schema.RewardID(id))
		return data, nil
	case graphql.OpTriggerThirdPartyEvent:
		var in graphql.TriggerThirdPartyEventVars
		if err := decodeVars(vars, &in); err != nil {
			return nil, err
		}
		return graphql.TriggerThirdPartyEventData{TriggerThirdPartyEvent: s.state.recordEvent(in.Input)}, nil
	default:
		return nil, userMessage("Unknown operation " + op)
	}
}

func decodeVars(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return schema.ErrInvalidRequest
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(schema.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeEnvelope(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, graphql.ErrorEnvelope{ErrorMessages: messages, HTTPCode: status})
}

func writeGraphQLErrors(w http.ResponseWriter, messages ...string) {
	resp := graphql.Response{}
	for _, msg := range messages {
		resp.Errors = append(resp.Errors, graphql.Error{Message: msg})
	}
	writeJSON(w, http.StatusOK, resp)
}
