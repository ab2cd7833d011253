package apimock

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/pledgeflow/schema"
)

// Failure scripts the response of one upcoming request. A Status of 200
// produces a GraphQL error body; anything else an HTTP error envelope.
type Failure struct {
	Status   int
	Messages []string
}

type account struct {
	user schema.User
	hash []byte
}

// State is the in-memory backend behind the mock server.
type State struct {
	mu        sync.Mutex
	accounts  map[string]*account
	cards     map[schema.UserID][]schema.StoredCard
	shipping  map[schema.RewardID][]schema.ShippingRule
	intents   map[string]schema.UserID
	events    []schema.TriggerThirdPartyEventInput
	failures  map[string][]Failure
	calls     map[string]int
	trackCode []int
	tracked   [][]byte
	hashCost  int
}

// NewState returns an empty backend.
func NewState() *State {
	return &State{
		accounts: make(map[string]*account),
		cards:    make(map[schema.UserID][]schema.StoredCard),
		shipping: make(map[schema.RewardID][]schema.ShippingRule),
		intents:  make(map[string]schema.UserID),
		failures: make(map[string][]Failure),
		calls:    make(map[string]int),
		hashCost: bcrypt.MinCost,
	}
}

// AddUser registers user under token. An empty password leaves the account
// without a password, the state the set-password screen exists for.
func (s *State) AddUser(token string, user schema.User, password string) error {
	if token == "" {
		return errors.New("token is required")
	}
	acct := &account{user: user}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		if err != nil {
			return err
		}
		acct.hash = hash
		acct.user.HasPassword = true
		acct.user.NeedsPassword = false
	} else {
		acct.user.HasPassword = false
		acct.user.NeedsPassword = true
	}
	s.mu.Lock()
	s.accounts[token] = acct
	s.mu.Unlock()
	return nil
}

// User returns the account registered under token.
func (s *State) User(token string) (schema.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[token]
	if !ok {
		return schema.User{}, false
	}
	return acct.user, true
}

// CheckPassword reports whether password matches the account's hash.
func (s *State) CheckPassword(token, password string) bool {
	s.mu.Lock()
	acct, ok := s.accounts[token]
	s.mu.Unlock()
	if !ok || len(acct.hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) == nil
}

// SetCards replaces the stored cards of a user.
func (s *State) SetCards(userID schema.UserID, cards ...schema.StoredCard) {
	s.mu.Lock()
	s.cards[userID] = append([]schema.StoredCard(nil), cards...)
	s.mu.Unlock()
}

// Cards returns the stored cards of a user.
func (s *State) Cards(userID schema.UserID) []schema.StoredCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.StoredCard(nil), s.cards[userID]...)
}

// SetShippingRules stores the rules returned for a reward.
func (s *State) SetShippingRules(rewardID schema.RewardID, rules ...schema.ShippingRule) {
	s.mu.Lock()
	s.shipping[rewardID] = append([]schema.ShippingRule(nil), rules...)
	s.mu.Unlock()
}

// Events returns every recorded third-party event.
func (s *State) Events() []schema.TriggerThirdPartyEventInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.TriggerThirdPartyEventInput(nil), s.events...)
}

// FailNext makes the next request for op fail.
func (s *State) FailNext(op string, status int, messages ...string) {
	s.mu.Lock()
	s.failures[op] = append(s.failures[op], Failure{Status: status, Messages: messages})
	s.mu.Unlock()
}

// Calls reports how many requests for op were received.
func (s *State) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ScriptTrack queues status codes returned by the tracking endpoint, in order.
// Once exhausted the endpoint answers 200.
func (s *State) ScriptTrack(codes ...int) {
	s.mu.Lock()
	s.trackCode = append(s.trackCode, codes...)
	s.mu.Unlock()
}

// Tracked returns every body posted to the tracking endpoint.
func (s *State) Tracked() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.tracked))
	copy(out, s.tracked)
	return out
}

func (s *State) nextFailure(op string) (Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return Failure{}, false
	}
	s.failures[op] = queue[1:]
	return queue[0], true
}

func (s *State) nextTrack(body []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, body)
	if len(s.trackCode) == 0 {
		return 200
	}
	code := s.trackCode[0]
	s.trackCode = s.trackCode[1:]
	return code
}

// Mutations. Each returns a user-facing error for invalid input.

// userMessage is an error whose text is shown to the user verbatim.
type userMessage string

func (m userMessage) Error() string { return string(m) }

const (
	errLoggedOut        userMessage = "You must be logged in"
	errCardNotFound     userMessage = "Payment source not found"
	errUnknownIntent    userMessage = "Setup intent is invalid or already used"
	errPasswordMismatch userMessage = "Password confirmation doesn't match Password"
	errCurrentPassword  userMessage = "Current password is incorrect"
)

var errPasswordTooShort = userMessage(fmt.Sprintf("Password is too short (minimum is %d characters)", schema.MinPasswordLength))

func (s *State) deleteCard(token, id string) (schema.DeletePaymentSourceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[token]
	if !ok {
		return schema.DeletePaymentSourceResult{}, errLoggedOut
	}
	cards := s.cards[acct.user.ID]
	for i, card := range cards {
		if card.ID == id {
			s.cards[acct.user.ID] = append(cards[:i:i], cards[i+1:]...)
			return schema.DeletePaymentSourceResult{ClientMutationID: uuid.NewString()}, nil
		}
	}
	return schema.DeletePaymentSourceResult{}, errCardNotFound
}

func (s *State) createIntent(token string) (schema.SetupIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[token]
	if !ok {
		return schema.SetupIntent{}, errLoggedOut
	}
	secret := "seti_" + uuid.NewString()
	s.intents[secret] = acct.user.ID
	return schema.SetupIntent{ClientSecret: secret}, nil
}

func (s *State) saveCard(token, secret string) (schema.StoredCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[token]
	if !ok {
		return schema.StoredCard{}, errLoggedOut
	}
	owner, ok := s.intents[secret]
	if !ok || owner != acct.user.ID {
		return schema.StoredCard{}, errUnknownIntent
	}
	delete(s.intents, secret)
	card := schema.StoredCard{
		ID:             "card-" + uuid.NewString()[:8],
		LastFourDigits: "4242",
		ExpirationDate: "2030-12-01",
		Type:           "visa",
	}
	s.cards[acct.user.ID] = append(s.cards[acct.user.ID], card)
	return card, nil
}

func (s *State) updatePassword(token string, req schema.UpdatePasswordRequest) (schema.UpdatePasswordResult, error) {
	if !schema.IsAtLeastMinPassword(req.Password) {
		return schema.UpdatePasswordResult{}, errPasswordTooShort
	}
	if req.Password != req.PasswordConfirmation {
		return schema.UpdatePasswordResult{}, errPasswordMismatch
	}
	s.mu.Lock()
	acct, ok := s.accounts[token]
	cost := s.hashCost
	s.mu.Unlock()
	if !ok {
		return schema.UpdatePasswordResult{}, errLoggedOut
	}
	if len(acct.hash) > 0 && req.CurrentPassword != "" {
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(req.CurrentPassword)) != nil {
			return schema.UpdatePasswordResult{}, errCurrentPassword
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return schema.UpdatePasswordResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct.hash = hash
	acct.user.HasPassword = true
	acct.user.NeedsPassword = false
	return schema.UpdatePasswordResult{User: acct.user}, nil
}

func (s *State) shippingRules(rewardID schema.RewardID) []schema.ShippingRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.ShippingRule(nil), s.shipping[rewardID]...)
}

func (s *State) recordEvent(input schema.TriggerThirdPartyEventInput) schema.TriggerThirdPartyEventResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, input)
	return schema.TriggerThirdPartyEventResult{Success: true, Message: "event received"}
}
