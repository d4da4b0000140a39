package core

import (
	"errors"
	"html"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const maxPhotoSize = 8 * 1024 * 1024 // 8MB upload payload limit

// RouterDeps bundles the collaborators the router wires together.
type RouterDeps struct {
	Config   Config
	Cookies  *sessions.CookieStore
	Auth     AuthService
	Sessions SessionStore
	Users    UserRepository
	Contacts ContactRepository
	Photos   *PhotoStore
	Rules    []Rule
	DB       *pgxpool.Pool
	Redis    *redis.Client
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	startedAt := time.Now()
	r := gin.Default()

	// Global middleware: origin/CORS -> session resolution -> rule enforcement
	r.Use(OriginMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, deps.Cookies, deps.Sessions))
	r.Use(RequireRules(deps.Rules))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/login", func(c *gin.Context) {
		if hasSession(c) {
			c.Redirect(http.StatusFound, cfg.PostLoginRedirect)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
	})

	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `form:"username"`
			Password string `form:"password"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.Redirect(http.StatusFound, "/login?error=1")
			return
		}

		user, err := deps.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				// Same outcome for unknown user and wrong password.
				c.Redirect(http.StatusFound, "/login?error=1")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
			return
		}

		token, err := deps.Sessions.Create(c.Request.Context(), user.Username)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create session")
			return
		}

		cookieSess := cookieSession(c)
		cookieSess.Values = map[interface{}]interface{}{"token": token}
		applyCookieOptions(cfg, cookieSess)
		if err := cookieSess.Save(c.Request, c.Writer); err != nil {
			_ = deps.Sessions.Invalidate(c.Request.Context(), token)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
			return
		}

		c.Redirect(http.StatusFound, cfg.PostLoginRedirect)
	})

	r.POST("/logout", func(c *gin.Context) {
		cookieSess := cookieSession(c)
		if token, _ := cookieSess.Values["token"].(string); token != "" {
			// Invalidation is idempotent; an already-dead token is fine.
			_ = deps.Sessions.Invalidate(c.Request.Context(), token)
		}
		cookieSess.Values = map[interface{}]interface{}{}
		applyCookieOptions(cfg, cookieSess)
		cookieSess.Options.MaxAge = -1 // Must be set AFTER applyCookieOptions to properly delete cookie
		if err := cookieSess.Save(c.Request, c.Writer); err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
			return
		}
		c.Redirect(http.StatusFound, "/login")
	})

	r.GET("/req/signup", func(c *gin.Context) {
		if hasSession(c) {
			c.Redirect(http.StatusFound, cfg.PostLoginRedirect)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(signupPage))
	})

	r.POST("/req/signup", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
			return
		}

		id, err := deps.Users.Create(c.Request.Context(), req.Username, req.Email, hash)
		if err != nil {
			respondError(c, http.StatusConflict, "CONFLICT", "username is taken")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":       id,
			"username": req.Username,
			"email":    req.Email,
		})
	})

	r.GET("/index", func(c *gin.Context) {
		sess, _ := currentSession(c)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage(sess.Username)))
	})

	r.GET("/api/status", func(c *gin.Context) {
		st := CollectSystemStatus(c.Request.Context(), deps.DB, deps.Redis, deps.Users, deps.Contacts, startedAt)
		c.JSON(http.StatusOK, st)
	})

	contacts := r.Group("/contacts")
	{
		contacts.POST("", func(c *gin.Context) {
			var ct Contact
			if err := c.ShouldBindJSON(&ct); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(ct.Name) == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
				return
			}
			created, err := deps.Contacts.Create(c.Request.Context(), ct)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create contact")
				return
			}
			c.Header("Location", "/contacts/"+created.ID)
			c.JSON(http.StatusCreated, created)
		})

		contacts.GET("", func(c *gin.Context) {
			page, size, err := parsePagination(c.Query("page"), c.Query("size"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			items, total, err := deps.Contacts.List(c.Request.Context(), page, size)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to list contacts")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"content":        items,
				"page":           page,
				"size":           size,
				"total_elements": total,
				"total_pages":    calcTotalPages(total, size),
			})
		})

		contacts.GET("/getAll", func(c *gin.Context) {
			total, err := deps.Contacts.Count(c.Request.Context())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to count contacts")
				return
			}
			c.JSON(http.StatusOK, total)
		})

		contacts.GET("/:id", func(c *gin.Context) {
			ct, err := deps.Contacts.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				if errors.Is(err, ErrContactNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "contact not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load contact")
				return
			}
			c.JSON(http.StatusOK, ct)
		})

		contacts.PUT("/:id", func(c *gin.Context) {
			var ct Contact
			if err := c.ShouldBindJSON(&ct); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			ct.ID = c.Param("id")
			updated, err := deps.Contacts.Update(c.Request.Context(), ct)
			if err != nil {
				if errors.Is(err, ErrContactNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "contact not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update contact")
				return
			}
			c.JSON(http.StatusOK, updated)
		})

		contacts.DELETE("/:id", func(c *gin.Context) {
			if err := deps.Contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete contact")
				return
			}
			c.Status(http.StatusNoContent)
		})

		contacts.PUT("/photo", func(c *gin.Context) {
			id := firstNonEmpty(c.Query("id"), c.PostForm("id"))
			if id == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id is required")
				return
			}
			exists, err := deps.Contacts.Exists(c.Request.Context(), id)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to check contact")
				return
			}
			if !exists {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "contact not found")
				return
			}

			fh, err := c.FormFile("file")
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
				return
			}
			if fh.Size > maxPhotoSize {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "file too large")
				return
			}
			f, err := fh.Open()
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to read upload")
				return
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, maxPhotoSize))
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to read upload")
				return
			}

			key := PhotoKey(id, fh.Filename)
			photoURL, err := deps.Photos.Write(key, data)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to store photo")
				return
			}
			if err := deps.Contacts.SetPhotoURL(c.Request.Context(), id, photoURL); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update contact")
				return
			}
			c.String(http.StatusOK, photoURL)
		})

		contacts.GET("/image/:filename", func(c *gin.Context) {
			filename := c.Param("filename")
			data, err := deps.Photos.Read(filename)
			if err != nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "photo not found")
				return
			}
			c.Data(http.StatusOK, contentTypeForPhoto(filename), data)
		})
	}

	return r
}

func contentTypeForPhoto(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// parsePagination follows the original surface: page is zero-based.
func parsePagination(pageStr, sizeStr string) (int, int, error) {
	page := 0
	size := defaultPageSize
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 0 {
			return 0, 0, errors.New("page must be a non-negative integer")
		}
		page = p
	}
	if strings.TrimSpace(sizeStr) != "" {
		s, err := strconv.Atoi(sizeStr)
		if err != nil || s <= 0 {
			return 0, 0, errors.New("size must be a positive integer")
		}
		if s > maxPageSize {
			s = maxPageSize
		}
		size = s
	}
	return page, size, nil
}

func calcTotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

const loginPage = `<!doctype html>
<html><head><title>Login</title><link rel="stylesheet" href="/css/app.css"></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/login">
  <input name="username" placeholder="Username" autocomplete="username">
  <input name="password" type="password" placeholder="Password" autocomplete="current-password">
  <button type="submit">Login</button>
</form>
<a href="/req/signup">Create an account</a>
</body></html>
`

const signupPage = `<!doctype html>
<html><head><title>Sign up</title><link rel="stylesheet" href="/css/app.css"></head>
<body>
<h1>Create account</h1>
<p>POST /req/signup with JSON {"username","email","password"}.</p>
<a href="/login">Back to login</a>
</body></html>
`

func indexPage(username string) string {
	return `<!doctype html>
<html><head><title>Contacts</title><link rel="stylesheet" href="/css/app.css"></head>
<body>
<h1>Contacts</h1>
<p>Signed in as ` + html.EscapeString(username) + `.</p>
<form method="post" action="/logout"><button type="submit">Logout</button></form>
</body></html>
`
}
