//go:build integration

package integration

import (
	"fmt"
	"testing"
	"time"
)

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type principalInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func TestAuthLifecycle_Basic(t *testing.T) {
	cfg := LoadCfg()
	WaitHTTP(t, "auth-service", cfg.HealthURL, 30*time.Second)
	base := cfg.BaseURL + cfg.AuthPath

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	pass := "it-supersecret"

	// register
	reg := decode[principalInfo](t, httpPostJSON(t, base+"/register", map[string]string{
		"email":     email,
		"password":  pass,
		"full_name": "IT User",
	}, "", 201))
	if reg.Email != email {
		t.Fatalf("register echoed %q, want %q", reg.Email, email)
	}

	// duplicate registration conflicts
	httpPostJSON(t, base+"/register", map[string]string{
		"email": email, "password": pass,
	}, "", 409)

	// login
	pair := decode[tokenPair](t, httpPostJSON(t, base+"/login", map[string]string{
		"email": email, "password": pass,
	}, "", 200))
	if pair.TokenType != "Bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected token pair: %+v", pair)
	}

	// access token opens the gate
	me := decode[principalInfo](t, httpGetAuth(t, base+"/me", pair.AccessToken, 200))
	if me.ID != reg.ID {
		t.Fatalf("me returned %q, want %q", me.ID, reg.ID)
	}

	// refresh rotates; the consumed token dies
	next := decode[tokenPair](t, httpPostJSON(t, base+"/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 200))
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh did not rotate the refresh token")
	}
	httpPostJSON(t, base+"/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 401)

	// reuse of the consumed token above revoked the whole family
	httpPostJSON(t, base+"/refresh", map[string]string{
		"refresh_token": next.RefreshToken,
	}, "", 401)
}

func TestAuthLifecycle_PasswordChange(t *testing.T) {
	cfg := LoadCfg()
	WaitHTTP(t, "auth-service", cfg.HealthURL, 30*time.Second)
	base := cfg.BaseURL + cfg.AuthPath

	email := fmt.Sprintf("it-pw-%d@example.com", time.Now().UnixNano())
	oldPass, newPass := "it-oldsecret", "it-newsecret"

	httpPostJSON(t, base+"/register", map[string]string{
		"email": email, "password": oldPass,
	}, "", 201)
	pair := decode[tokenPair](t, httpPostJSON(t, base+"/login", map[string]string{
		"email": email, "password": oldPass,
	}, "", 200))

	httpPostJSON(t, base+"/change-password", map[string]string{
		"current_password": oldPass,
		"new_password":     newPass,
	}, pair.AccessToken, 204)

	// pre-change refresh tokens are dead, old password is dead
	httpPostJSON(t, base+"/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 401)
	httpPostJSON(t, base+"/login", map[string]string{
		"email": email, "password": oldPass,
	}, "", 401)

	// new password works
	httpPostJSON(t, base+"/login", map[string]string{
		"email": email, "password": newPass,
	}, "", 200)
}

func TestAuthLifecycle_Logout(t *testing.T) {
	cfg := LoadCfg()
	WaitHTTP(t, "auth-service", cfg.HealthURL, 30*time.Second)
	base := cfg.BaseURL + cfg.AuthPath

	email := fmt.Sprintf("it-lo-%d@example.com", time.Now().UnixNano())
	pass := "it-supersecret"

	httpPostJSON(t, base+"/register", map[string]string{
		"email": email, "password": pass,
	}, "", 201)
	pair := decode[tokenPair](t, httpPostJSON(t, base+"/login", map[string]string{
		"email": email, "password": pass,
	}, "", 200))

	httpPostJSON(t, base+"/logout", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 204)
	// idempotent
	httpPostJSON(t, base+"/logout", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 204)

	httpPostJSON(t, base+"/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "", 401)

	// access tokens are self-verifying and outlive the session until expiry
	httpGetAuth(t, base+"/me", pair.AccessToken, 200)
}
