package skills

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// oauthRefreshTokenKey is where a refreshable OAuth credential's long-lived
// refresh token is stored; the short-lived access token derived from it is
// never persisted, only handed to the caller.
const oauthRefreshTokenKey = "refresh_token"

// ResolveCredential returns the plaintext value for a skill credential,
// refreshing it first if the skill declares OAuth and key is the access
// token slot. Non-OAuth skills (and the refresh_token slot itself) resolve
// exactly like any other vault-stored credential.
func (l *Loader) ResolveCredential(ctx context.Context, skillID, key string) (string, bool, error) {
	skill, ok := l.findSkill(skillID)
	if ok && skill.OAuth != nil && key != oauthRefreshTokenKey {
		return l.resolveOAuthAccessToken(ctx, skillID, skill.OAuth)
	}

	ciphertext, ok, err := l.skillStore.GetCredential(skillID, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plaintext, err := l.vault.Decrypt(ciphertext)
	if err != nil {
		return "", false, err
	}
	return plaintext, true, nil
}

func (l *Loader) findSkill(skillID string) (Skill, bool) {
	for _, s := range l.builtins {
		if s.ID == skillID {
			return s, true
		}
	}
	for _, s := range l.scanManifests() {
		if s.ID == skillID {
			return s, true
		}
	}
	return Skill{}, false
}

// resolveOAuthAccessToken exchanges the skill's stored refresh token for a
// fresh access token via the refresh_token grant. The client credentials
// come from environment variables named in the manifest, never from the
// vault or the manifest file itself.
func (l *Loader) resolveOAuthAccessToken(ctx context.Context, skillID string, spec *OAuthSpec) (string, bool, error) {
	ciphertext, ok, err := l.skillStore.GetCredential(skillID, oauthRefreshTokenKey)
	if err != nil {
		return "", false, err
	}
	if !ok || ciphertext == "" {
		return "", false, nil
	}
	refreshToken, err := l.vault.Decrypt(ciphertext)
	if err != nil {
		return "", false, err
	}

	clientID := os.Getenv(spec.ClientIDEnv)
	clientSecret := os.Getenv(spec.ClientSecretEnv)
	if clientID == "" || clientSecret == "" {
		return "", false, fmt.Errorf("skills: oauth skill %q missing client credentials in %s/%s", skillID, spec.ClientIDEnv, spec.ClientSecretEnv)
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: spec.TokenURL},
	}
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", false, fmt.Errorf("skills: refreshing oauth token for %q: %w", skillID, err)
	}

	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		if enc, ok := l.vault.(interface{ Encrypt(string) (string, error) }); ok {
			if encrypted, encErr := enc.Encrypt(tok.RefreshToken); encErr == nil {
				_ = l.skillStore.SetCredential(skillID, oauthRefreshTokenKey, encrypted)
			}
		}
	}

	return tok.AccessToken, true, nil
}
