package instagram

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session holds the cookie jar backing authenticated requests. The jar is
// loaded once and treated as immutable afterwards; every outgoing request
// receives a fresh clone of the cookies, so concurrent scrapes never observe
// or mutate each other's session state.
type Session struct {
	cookies []*http.Cookie
}

// NewAnonymousSession returns a session without any cookies.
func NewAnonymousSession() *Session {
	return &Session{}
}

// LoadSession reads a Mozilla/Netscape cookie-jar text file. The format is a
// 7-field tab-separated line per cookie:
//
//	domain  includeSubdomains  path  secure  expires  name  value
//
// Lines starting with "#" are comments, except the "#HttpOnly_" domain prefix.
func LoadSession(path string) (*Session, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer file.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = strings.TrimPrefix(line, "#HttpOnly_")
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		cookie := &http.Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		if expires, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return &Session{cookies: cookies}, nil
}

// Count returns the number of cookies in the jar.
func (s *Session) Count() int {
	if s == nil {
		return 0
	}
	return len(s.cookies)
}

// Authenticated reports whether the jar carries any cookies.
func (s *Session) Authenticated() bool {
	return s.Count() > 0
}

// Clone returns fresh copies of the cookies applicable to the request host,
// value semantics so the caller can never mutate the base jar.
func (s *Session) Clone(host string) []*http.Cookie {
	if s == nil || len(s.cookies) == 0 {
		return nil
	}

	cloned := make([]*http.Cookie, 0, len(s.cookies))
	for _, cookie := range s.cookies {
		if !domainMatches(host, cookie.Domain) {
			continue
		}
		copied := *cookie
		cloned = append(cloned, &copied)
	}
	return cloned
}

// Apply attaches a fresh clone of the applicable cookies to the request.
func (s *Session) Apply(req *http.Request) {
	for _, cookie := range s.Clone(req.URL.Hostname()) {
		req.AddCookie(cookie)
	}
}

// domainMatches implements suffix matching for cookie domains, where a
// leading dot means "this domain and subdomains".
func domainMatches(host, domain string) bool {
	if domain == "" {
		return true
	}
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
