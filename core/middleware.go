package core

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const sessionCookieName = "contact_session"

// Context keys set by SessionMiddleware.
const (
	ctxCookieSession = "cookie_session"
	ctxSession       = "session"
)

// SessionMiddleware resolves the caller's session, if any. The signed cookie
// only carries the opaque token; the store is the authority. An invalid or
// expired token is not an error here, the request simply proceeds anonymous
// and the authorization layer decides what that means. A store that cannot
// answer at all is a different matter: that failure surfaces as a server
// error instead of silently downgrading the caller to anonymous.
func SessionMiddleware(cfg Config, cookies *sessions.CookieStore, store SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieSess, err := cookies.Get(c.Request, sessionCookieName)
		if err != nil {
			// Tampered or stale cookie: treat as anonymous with a fresh one.
			cookieSess, _ = cookies.New(c.Request, sessionCookieName)
		}
		applyCookieOptions(cfg, cookieSess)
		c.Set(ctxCookieSession, cookieSess)

		token, _ := cookieSess.Values["token"].(string)
		if token != "" {
			sess, err := store.Validate(c.Request.Context(), token)
			switch {
			case err == nil:
				c.Set(ctxSession, sess)
			case errors.Is(err, ErrSessionInvalid):
				// Unknown or expired token: proceed anonymous.
			default:
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session backend unavailable")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// RequireRules enforces the ordered access rules before any handler runs.
// Denied requests are redirected to the login page rather than failed hard;
// an expired session looks the same as no session at all.
func RequireRules(rules []Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Authorize(rules, c.Request.URL.Path, hasSession(c)) == Permit {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// OriginMiddleware validates Origin/Referer against the allowed list and
// sets CORS headers. It runs before authorization: a disallowed origin never
// reaches rule evaluation.
func OriginMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin, host string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is allowed.
			return true
		}
		// Browsers attach Origin to every POST; one matching the request
		// host is same-origin and needs no allow-list entry.
		if u, err := url.Parse(origin); err == nil && u.Host != "" && u.Host == host {
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		origin = strings.ToLower(origin)
		_, ok := allowed[origin]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin, c.Request.Host) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin, c.Request.Host) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Allow-Headers", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
}

// hasSession reports whether SessionMiddleware validated a live session.
func hasSession(c *gin.Context) bool {
	_, ok := c.Get(ctxSession)
	return ok
}

// currentSession returns the validated session for the request.
func currentSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(ctxSession)
	if !ok {
		return Session{}, false
	}
	sess, ok := v.(Session)
	return sess, ok
}

func cookieSession(c *gin.Context) *sessions.Session {
	v, _ := c.Get(ctxCookieSession)
	sess, _ := v.(*sessions.Session)
	return sess
}

func applyCookieOptions(cfg Config, session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/"
	session.Options.MaxAge = int(cfg.SessionIdleTimeout.Seconds())
	session.Options.HttpOnly = true
	session.Options.Secure = cfg.CookieSecure
	session.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
