// Package currentuser tracks the logged-in account and its access token.
package currentuser

import (
	"context"
	"encoding/json"
	"sync"

	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// CurrentUser holds the session. Observers of Observable see every login,
// refresh and logout; nil means logged out.
type CurrentUser struct {
	mu    sync.Mutex
	token string
	user  *rx.Behavior[*schema.User]
	store *prefs.Store
	log   pslog.Logger
}

// New returns a logged-out session. When store is non-nil the session is
// restored from and saved to it.
func New(store *prefs.Store, logger pslog.Logger) *CurrentUser {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	c := &CurrentUser{
		user:  rx.NewBehaviorWith[*schema.User](nil),
		store: store,
		log:   logger,
	}
	c.restore()
	return c
}

// Login stores user and token and publishes the user.
func (c *CurrentUser) Login(user schema.User, token string) {
	c.mu.Lock()
	if token != "" {
		c.token = token
	}
	tok := c.token
	c.mu.Unlock()
	c.persist(&user, tok)
	c.log.Debug("current user login", "user", int64(user.ID))
	c.user.Next(&user)
}

// Refresh replaces the stored user while keeping the token.
func (c *CurrentUser) Refresh(user schema.User) {
	c.Login(user, "")
}

// Logout clears the session.
func (c *CurrentUser) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.persist(nil, "")
	c.log.Debug("current user logout")
	c.user.Next(nil)
}

// AccessToken returns the OAuth token, if any. It satisfies graphql.TokenSource.
func (c *CurrentUser) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// User returns a copy of the logged-in user.
func (c *CurrentUser) User() (schema.User, bool) {
	u, _ := c.user.Value()
	if u == nil {
		return schema.User{}, false
	}
	return *u, true
}

// Exists reports whether a user is logged in.
func (c *CurrentUser) Exists() bool {
	_, ok := c.User()
	return ok
}

// Observable emits the current user, nil when logged out, and every change after.
func (c *CurrentUser) Observable() rx.Observable[*schema.User] {
	return c.user
}

// LoggedInUser emits only logged-in users.
func (c *CurrentUser) LoggedInUser() rx.Observable[schema.User] {
	nonNil := rx.Filter[*schema.User](c.user, func(u *schema.User) bool { return u != nil })
	return rx.Map(nonNil, func(u *schema.User) schema.User { return *u })
}

func (c *CurrentUser) restore() {
	if c.store == nil {
		return
	}
	token := c.store.GetString(prefs.KeyAccessToken, "")
	raw := c.store.GetString(prefs.KeyUser, "")
	if token == "" || raw == "" {
		return
	}
	var user schema.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		c.log.Warn("current user restore failed", "err", err)
		return
	}
	c.token = token
	c.user.Next(&user)
}

func (c *CurrentUser) persist(user *schema.User, token string) {
	if c.store == nil {
		return
	}
	raw := ""
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			c.log.Warn("current user save failed", "err", err)
			return
		}
		raw = string(data)
	}
	if err := c.store.SetString(prefs.KeyUser, raw); err != nil {
		c.log.Warn("current user save failed", "err", err)
	}
	if err := c.store.SetString(prefs.KeyAccessToken, token); err != nil {
		c.log.Warn("current user save failed", "err", err)
	}
}
