package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the session cookies out of a logged-in
// browser, for importing a session without a password login.
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"IMPORTING AN INSTAGRAM SESSION FROM YOUR BROWSER",
		rule,
		"",
		"1. Log in at https://www.instagram.com in your browser.",
		"2. Open the developer tools (F12, or Cmd+Option+I on macOS).",
		"3. Open the Application tab (Chrome, Edge) or Storage tab (Firefox)",
		"   and select Cookies > https://www.instagram.com.",
		"4. Copy the values of these cookies:",
		"",
		"   sessionid    long value containing %3A, e.g. 12345678%3Aabcdef...",
		"   csrftoken    32 characters",
		"   ds_user_id   your numeric account id (optional)",
		"",
		"Copy only the value, without quotes or semicolons. Sessions expire;",
		"import again when downloads start failing with authorization errors.",
		"",
		"These cookies grant full access to the account. igharvest keeps them",
		"in the system keyring or an encrypted file, never in plain text.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ParseCookieHeader extracts cookies from a pasted "Cookie:" header value
func ParseCookieHeader(header string) map[string]string {
	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "Cookie:")
	header = strings.TrimPrefix(header, "cookie:")

	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return cookies
}

// AccountFromCookies builds an account from browser cookies
func AccountFromCookies(username string, cookies map[string]string) (*Account, error) {
	account := &Account{
		Username:  username,
		UserID:    cookies["ds_user_id"],
		SessionID: cookies["sessionid"],
		CSRFToken: cookies["csrftoken"],
		Cookies:   cookies,
	}
	if account.SessionID == "" || account.CSRFToken == "" {
		return nil, fmt.Errorf("%w: sessionid and csrftoken are required", ErrInvalidCredentials)
	}
	return account, nil
}
