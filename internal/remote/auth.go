package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/asteroid-belt/kisan/internal/log"
)

// refreshSkew refreshes access tokens this long before they expire.
const refreshSkew = 30 * time.Second

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated backend session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry returns when the access token expires, or zero if unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

func (s *Session) expiringSoon(now time.Time) bool {
	exp := s.Expiry()
	return !exp.IsZero() && now.Add(refreshSkew).After(exp)
}

// SessionStore persists the session between process runs.
type SessionStore interface {
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	ClearSession(ctx context.Context) error
}

// CurrentSession returns the active session, or nil for a guest.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// UserID returns the signed-in user's id, or "" for a guest.
func (c *Client) UserID() string {
	if s := c.CurrentSession(); s != nil {
		return s.User.ID
	}
	return ""
}

// OnSessionChange registers cb to run after every sign-in, refresh and sign-out.
// The returned func unregisters it.
func (c *Client) OnSessionChange(cb func(*Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = cb
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// setSession swaps the session, persists it and notifies listeners.
func (c *Client) setSession(ctx context.Context, s *Session, persist bool) {
	c.mu.Lock()
	c.session = s
	listeners := make([]func(*Session), 0, len(c.listeners))
	for _, cb := range c.listeners {
		listeners = append(listeners, cb)
	}
	c.mu.Unlock()

	if persist && c.store != nil {
		var err error
		if s == nil {
			err = c.store.ClearSession(ctx)
		} else {
			err = c.store.SaveSession(ctx, s)
		}
		if err != nil {
			log.Warnf("persist session: %v", err)
		}
	}

	for _, cb := range listeners {
		cb(s)
	}
}

// RestoreSession loads a previously persisted session, if any.
func (c *Client) RestoreSession(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	s, err := c.store.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s != nil {
		c.setSession(ctx, s, false)
	}
	return nil
}

type credentials struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// SignInWithPassword authenticates with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := jsonBody(credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var s Session
	_, err = c.doJSON(ctx, request{
		method:    http.MethodPost,
		path:      authPrefix + "/token",
		query:     url.Values{"grant_type": {"password"}},
		body:      body,
		anonymous: true,
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	normalizeExpiry(&s, time.Now())
	c.setSession(ctx, &s, true)
	return &s, nil
}

// SignUp registers a new account. When the backend requires email
// confirmation no session is returned and the user stays a guest.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*Session, error) {
	body, err := jsonBody(credentials{Email: email, Password: password, Data: metadata})
	if err != nil {
		return nil, err
	}
	var s Session
	_, err = c.doJSON(ctx, request{
		method:    http.MethodPost,
		path:      authPrefix + "/signup",
		body:      body,
		anonymous: true,
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	normalizeExpiry(&s, time.Now())
	c.setSession(ctx, &s, true)
	return &s, nil
}

// SignOut ends the session. The local session is always cleared, even when
// the backend cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.CurrentSession()
	if s == nil {
		return nil
	}

	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/logout",
	})
	if err == nil {
		_ = resp.Body.Close()
	} else {
		log.Warnf("remote sign out: %v", err)
	}

	c.setSession(ctx, nil, true)
	return nil
}

// refresh exchanges a refresh token for a new session.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := jsonBody(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	var s Session
	_, err = c.doJSON(ctx, request{
		method:    http.MethodPost,
		path:      authPrefix + "/token",
		query:     url.Values{"grant_type": {"refresh_token"}},
		body:      body,
		anonymous: true,
	}, &s)
	if err != nil {
		return nil, err
	}
	normalizeExpiry(&s, time.Now())
	return &s, nil
}

func normalizeExpiry(s *Session, now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

// sessionTokenSource supplies the bearer token for row, RPC and storage
// requests: the session's access token (refreshed when close to expiry) or
// the anon key for guests.
type sessionTokenSource struct {
	c *Client
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	c := ts.c
	s := c.CurrentSession()
	if s == nil {
		return &oauth2.Token{AccessToken: c.anonKey, TokenType: "Bearer"}, nil
	}

	if s.expiringSoon(time.Now()) && s.RefreshToken != "" {
		c.refreshMu.Lock()
		defer c.refreshMu.Unlock()

		// Another request may have refreshed while we waited.
		if cur := c.CurrentSession(); cur != nil && cur.AccessToken != s.AccessToken {
			return sessionToken(cur), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
		defer cancel()
		fresh, err := c.refresh(ctx, s.RefreshToken)
		switch {
		case err == nil:
			c.setSession(ctx, fresh, true)
			return sessionToken(fresh), nil
		case IsNetwork(err):
			// Offline: keep the old token and let the request fail on its own.
			log.Debugf("token refresh deferred: %v", err)
		default:
			log.Warnf("token refresh rejected, signing out: %v", err)
			c.setSession(ctx, nil, true)
			return &oauth2.Token{AccessToken: c.anonKey, TokenType: "Bearer"}, nil
		}
	}
	return sessionToken(s), nil
}

func sessionToken(s *Session) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}
