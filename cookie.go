package main

import (
	"context"
	"strings"
)

// ParseCookie splits a raw cookie string into key/value pairs.
// Grammar: pairs separated by ';', key and value split on the first '='.
// Surrounding whitespace is trimmed; pairs with an empty key or value are dropped.
func ParseCookie(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

var (
	cookieTokenKeys   = []string{"cookie_token_v2", "cookie_token"}
	cookieAccountKeys = []string{"account_id", "ltuid", "ltuid_v2", "account_id_v2"}
)

// bareTokenPrefix marks a v2 cookie token pasted without its key.
const bareTokenPrefix = "v2_"

// ExtractCookieCredential returns the session token and account id found in raw.
// Either may be empty.
func ExtractCookieCredential(raw string) (token, accountID string) {
	pairs := ParseCookie(raw)
	token = firstOf(pairs, cookieTokenKeys)
	accountID = firstOf(pairs, cookieAccountKeys)

	if token == "" {
		token = bareToken(raw)
	}
	return token, accountID
}

// bareToken returns the first keyless segment carrying bareTokenPrefix.
func bareToken(raw string) string {
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, bareTokenPrefix) && !strings.Contains(part, "=") {
			return part
		}
	}
	return ""
}

func firstOf(pairs map[string]string, keys []string) string {
	for _, k := range keys {
		if v := pairs[k]; v != "" {
			return v
		}
	}
	return ""
}

// CookieExchangeResult is a retrieval URL authorized by the cookie itself.
type CookieExchangeResult struct {
	URL    string `json:"url"`
	Cookie string `json:"cookie"`
}

// CookieExchange turns an imported cookie into a log retrieval URL.
type CookieExchange struct {
	client *VendorClient
	logger Logger
}

func NewCookieExchange(client *VendorClient, logger Logger) *CookieExchange {
	return &CookieExchange{client: client, logger: withPrefix(logger, "cookie")}
}

type userAccountInfo struct {
	AccountID flexString `json:"account_id"`
	UID       flexString `json:"uid"`
}

// Exchange parses raw, looks up the account id when the cookie lacks one, and
// builds the retrieval URL for gameBiz (hk4e when empty).
func (c *CookieExchange) Exchange(ctx context.Context, raw string, region Region, gameBiz string) (*CookieExchangeResult, error) {
	token, accountID := ExtractCookieCredential(raw)
	if token == "" {
		return nil, ErrMissingCookieToken
	}

	if accountID == "" {
		accountID = c.lookupAccountID(ctx, token, region)
	}
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	game := GameGenshin
	if gameBiz != "" {
		g, r, err := ParseGameBiz(gameBiz)
		if err != nil {
			return nil, err
		}
		game, region = g, r
	}

	uri, err := BuildGachaURL(AuthKey{}, game, region, "")
	if err != nil {
		return nil, err
	}
	return &CookieExchangeResult{
		URL:    uri,
		Cookie: "cookie_token_v2=" + token + ";account_id=" + accountID + ";",
	}, nil
}

// lookupAccountID is best effort: any failure yields "", which the caller reports
// as ErrMissingAccountID.
func (c *CookieExchange) lookupAccountID(ctx context.Context, token string, region Region) string {
	res, err := c.client.getJSON(ctx, endpointsFor(region).UserInfo, map[string]string{
		"Cookie": "cookie_token_v2=" + token + ";",
	})
	if err != nil {
		c.logger.Log("Account id lookup failed: %v", err)
		return ""
	}
	info, err := decodeData[userAccountInfo](res)
	if err != nil {
		c.logger.Log("Account id lookup returned unreadable data: %v", err)
		return ""
	}
	if info.AccountID != "" {
		return string(info.AccountID)
	}
	return string(info.UID)
}
