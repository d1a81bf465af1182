package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"beacon.live/data"
)

const sessionCookieName = "beacon_session"

// Auth serves the account endpoints. Login state is a random cookie
// token mapped to a user in memory - account records live in SQLite,
// login sessions die with the process like everything else here.
// Location pings are deliberately not authenticated.
type Auth struct {
	Store *data.Store

	mtx    sync.Mutex
	tokens map[string]*data.User
}

func NewAuth(store *data.Store) *Auth {
	return &Auth{
		Store:  store,
		tokens: make(map[string]*data.User),
	}
}

// getSessionToken retrieves or creates a session token from cookie
func getSessionToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	b := make([]byte, 16)
	rand.Read(b)
	token := hex.EncodeToString(b)

	isSecure := r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return token
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupHandler handles POST /auth/signup.
func (a *Auth) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", 400)
		return
	}
	if len(creds.Username) == 0 || len(creds.Password) == 0 {
		http.Error(w, "Missing username or password", 400)
		return
	}

	user, err := a.Store.CreateUser(creds.Username, creds.Password)
	if err == data.ErrUserExists {
		http.Error(w, "Username already exists", 409)
		return
	}
	if err != nil {
		http.Error(w, "Cannot create user", 500)
		return
	}

	a.login(w, r, user)

	b, _ := json.Marshal(map[string]interface{}{
		"message":  "User created successfully",
		"user_id":  user.ID,
		"username": user.Username,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(201)
	w.Write(b)
}

// LoginHandler handles POST /auth/login.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Invalid request body", 400)
		return
	}

	user, err := a.Store.Authenticate(creds.Username, creds.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", 401)
		return
	}

	a.login(w, r, user)
	writeJSON(w, map[string]interface{}{
		"message":  "Login successful",
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// LogoutHandler handles POST /auth/logout.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token := getSessionToken(w, r)
	a.mtx.Lock()
	delete(a.tokens, token)
	a.mtx.Unlock()

	writeJSON(w, map[string]interface{}{"message": "Logged out successfully"})
}

// CheckHandler handles GET /auth/check.
func (a *Auth) CheckHandler(w http.ResponseWriter, r *http.Request) {
	user := a.UserFor(r)
	if user == nil {
		writeJSON(w, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, map[string]interface{}{
		"authenticated": true,
		"user_id":       user.ID,
		"username":      user.Username,
	})
}

// UserFor returns the logged-in user for a request, or nil.
func (a *Auth) UserFor(r *http.Request) *data.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.tokens[cookie.Value]
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request, user *data.User) {
	token := getSessionToken(w, r)
	a.mtx.Lock()
	a.tokens[token] = user
	a.mtx.Unlock()
}
