// Package gauth implements the identity-provider contract against Google
// OAuth2: browser consent flow, silent refresh, token introspection and
// revocation.
package gauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/hal9000y/gmail-sender/internal/kvstore"
)

// ErrInteractiveRequired indicates no silent path to a token exists and the
// user must authorize in the browser.
var ErrInteractiveRequired = errors.New("interactive authorization required")

const (
	introspectEndpoint = "https://oauth2.googleapis.com/tokeninfo"
	revokeEndpoint     = "https://oauth2.googleapis.com/revoke"

	// silentTimeout bounds the non-interactive acquisition path; only the
	// interactive wait is unbounded.
	silentTimeout = 10 * time.Second

	stateTTL = 5 * time.Minute

	tokenKey = "gauth.token"
)

// Provider drives the Google OAuth2 flow. Thread-safe.
type Provider struct {
	mu            sync.Mutex
	cfg           *oauth2.Config
	token         *oauth2.Token
	store         kvstore.Store
	stateStore    map[string]time.Time
	waiters       map[chan *oauth2.Token]struct{}
	onInteractive func()
	httpClient    *http.Client
	introspectURL string
	revokeURL     string
}

// New creates a Provider for the given OAuth2 config.
func New(cfg *oauth2.Config) *Provider {
	return &Provider{
		cfg:           cfg,
		stateStore:    make(map[string]time.Time),
		waiters:       make(map[chan *oauth2.Token]struct{}),
		httpClient:    http.DefaultClient,
		introspectURL: introspectEndpoint,
		revokeURL:     revokeEndpoint,
	}
}

// AcquireToken obtains a bearer token. The non-interactive path refreshes via
// the retained refresh token and fails fast when none exists; the interactive
// path parks until the browser callback authorizes a code or ctx is
// cancelled.
func (p *Provider) AcquireToken(ctx context.Context, interactive bool, scopes []string) (string, error) {
	if !interactive {
		return p.acquireSilently(ctx, scopes)
	}

	ch := p.addWaiter()
	defer p.removeWaiter(ch)

	p.mu.Lock()
	prompt := p.onInteractive
	p.mu.Unlock()
	if prompt != nil {
		prompt()
	}

	select {
	case tok := <-ch:
		return tok.AccessToken, nil
	case <-ctx.Done():
		return "", fmt.Errorf("interactive authorization abandoned: %w", ctx.Err())
	}
}

func (p *Provider) acquireSilently(ctx context.Context, scopes []string) (string, error) {
	p.mu.Lock()
	prev := p.token
	p.mu.Unlock()

	if prev == nil || prev.RefreshToken == "" {
		return "", ErrInteractiveRequired
	}

	ctx, cancel := context.WithTimeout(ctx, silentTimeout)
	defer cancel()

	tok, err := p.scopedConfig(scopes).TokenSource(ctx, prev).Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	p.setToken(ctx, tok)

	return tok.AccessToken, nil
}

// Introspect asks the tokeninfo endpoint whether a token is live.
func (p *Provider) Introspect(ctx context.Context, token string) (bool, error) {
	u := p.introspectURL + "?access_token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Google answers 400 for expired or revoked tokens.
		return false, nil
	default:
		return false, fmt.Errorf("tokeninfo answered with status %d", resp.StatusCode)
	}
}

// Revoke invalidates a token with Google and drops the provider's retained
// copy so subsequent silent acquisitions start clean.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	p.mu.Lock()
	dropped := p.token != nil && p.token.AccessToken == token
	if dropped {
		p.token = nil
	}
	store := p.store
	p.mu.Unlock()

	if dropped && store != nil {
		if err := store.Remove(ctx, tokenKey); err != nil {
			log.Println("store.Remove failed", err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke rejected with status %d", resp.StatusCode)
	}

	return nil
}

// SetInteractivePrompt registers fn, invoked whenever an interactive
// acquisition starts waiting for consent; the binary uses it to open the
// user's browser.
func (p *Provider) SetInteractivePrompt(fn func()) {
	p.mu.Lock()
	p.onInteractive = fn
	p.mu.Unlock()
}

// HasToken reports whether the provider retains an OAuth2 token from a prior
// authorization in this process.
func (p *Provider) HasToken() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.token != nil
}

// RedirectURL generates the authorization URL with a secure random one-shot
// state.
func (p *Provider) RedirectURL() (string, error) {
	state, err := p.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// AuthorizeCode exchanges an authorization code for a token after validating
// state, then wakes every goroutine parked in an interactive acquisition.
func (p *Provider) AuthorizeCode(ctx context.Context, code, state string) error {
	if !p.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	p.setToken(ctx, tok)

	return nil
}

func (p *Provider) setToken(ctx context.Context, tok *oauth2.Token) {
	p.mu.Lock()

	// Google omits the refresh token on renewed grants; keep the old one.
	if tok.RefreshToken == "" && p.token != nil {
		tok.RefreshToken = p.token.RefreshToken
	}
	p.token = tok
	store := p.store

	for ch := range p.waiters {
		select {
		case ch <- tok:
		default:
		}
	}
	p.mu.Unlock()

	if store == nil {
		return
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		log.Println("json.Marshal failed", err)
		return
	}
	if err := store.Set(ctx, tokenKey, string(raw)); err != nil {
		log.Println("store.Set failed", err)
	}
}

// UseTokenStore persists the OAuth2 token, refresh token included, through
// store and restores a previously persisted one so silent refresh survives a
// process restart. Persistence is a cache; failures are logged and swallowed.
func (p *Provider) UseTokenStore(ctx context.Context, store kvstore.Store) {
	p.mu.Lock()
	p.store = store
	p.mu.Unlock()

	raw, ok, err := store.Get(ctx, tokenKey)
	if err != nil || !ok {
		if err != nil {
			log.Println("store.Get failed", err)
		}
		return
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		log.Println("json.Unmarshal failed", err)
		return
	}

	p.mu.Lock()
	if p.token == nil {
		p.token = tok
	}
	p.mu.Unlock()
}

func (p *Provider) addWaiter() chan *oauth2.Token {
	ch := make(chan *oauth2.Token, 1)

	p.mu.Lock()
	p.waiters[ch] = struct{}{}
	p.mu.Unlock()

	return ch
}

func (p *Provider) removeWaiter(ch chan *oauth2.Token) {
	p.mu.Lock()
	delete(p.waiters, ch)
	p.mu.Unlock()
}

func (p *Provider) scopedConfig(scopes []string) *oauth2.Config {
	if len(scopes) == 0 {
		return p.cfg
	}

	cfg := *p.cfg
	cfg.Scopes = scopes

	return &cfg
}

func (p *Provider) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.stateStore[state] = now.Add(stateTTL)

	for s, exp := range p.stateStore {
		if exp.Before(now) {
			delete(p.stateStore, s)
		}
	}

	return state, nil
}

func (p *Provider) validateState(state string) bool {
	if state == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	expiry, exists := p.stateStore[state]
	if !exists {
		return false
	}

	delete(p.stateStore, state)

	return !time.Now().After(expiry)
}
