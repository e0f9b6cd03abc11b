package jitsi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vovakirdan/videoconf/internal/callengine"
	"github.com/vovakirdan/videoconf/internal/store"
)

// DefaultBaseURL is the public Jitsi deployment used when none is configured.
const DefaultBaseURL = "https://jitsi.rocket.chat"

// Provider implements callengine.Provider for Jitsi Meet.
// Room names are the call ids; participant settings travel in the URL fragment.
type Provider struct {
	baseURL string
}

// New creates a Jitsi provider rooted at baseURL.
func New(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/")}
}

// GenerateURL returns {base}/{callID}.
func (p *Provider) GenerateURL(_ context.Context, call *store.CallRecord) (string, error) {
	return p.baseURL + "/" + url.PathEscape(call.ID), nil
}

// CustomizeURL appends the Jitsi config hash for user to the call's base URL.
func (p *Provider) CustomizeURL(_ context.Context, call *store.CallRecord, user store.UserIdentity, opts callengine.JoinOptions) (string, error) {
	if call.URL == "" {
		return "", fmt.Errorf("customize call %s: %w", call.ID, callengine.ErrURLMissing)
	}

	configs := []string{
		"userInfo.displayName=" + quote(user.Name),
		"config.prejoinPageEnabled=false",
		"config.requireDisplayName=false",
	}

	if call.IsGroup() {
		title := call.Title
		if title == "" {
			title = "Video Conference"
		}
		configs = append(configs, "config.callDisplayName="+quote(title))
	} else {
		configs = append(configs, "config.callDisplayName="+quote("Direct Message"))
	}

	if opts.Mic != nil {
		configs = append(configs, fmt.Sprintf("config.startWithAudioMuted=%t", !*opts.Mic))
	}
	if opts.Cam != nil {
		configs = append(configs, fmt.Sprintf("config.startWithVideoMuted=%t", !*opts.Cam))
	}

	return call.URL + "#" + strings.Join(configs, "&"), nil
}

// quote renders v as a double-quoted fragment value. Characters that would
// terminate the parameter are percent-encoded.
func quote(v string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
	return `"` + escaped + `"`
}

var _ callengine.Provider = (*Provider)(nil)
