package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"skrytka-plikow/internal/auth"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/models"

	"go.uber.org/zap"
)

// Tyle prób wylosowania wolnego username zanim się poddamy. Przy 6 znakach
// z alfabetu 36-znakowego kolizje są rzadkie, limit jest czysto asekuracyjny.
const maxUsernameRetries = 10

type RegisterRequest struct {
	Email string `json:"email" example:"jan.kowalski@example.com" validate:"required,email"`
}

type RegisterResponse struct {
	Username string `json:"username" example:"X7K2P9"`
	Email    string `json:"email" example:"jan.kowalski@example.com"`
	Key      string `json:"key" example:"A8F3K2M9Q1"`
}

// @Summary      Registers a new account
// @Description  Creates an account for the given e-mail. The server generates both the username and the access key; the key is returned once and never again.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        registerRequest   body      RegisterRequest  true  "Registration data"
// @Success      201               {object}  RegisterResponse
// @Failure      400               {string}  string "Invalid request body"
// @Failure      409               {string}  string "Email already registered"
// @Failure      500               {string}  string "Internal Server Error"
// @Router       /api/v1/auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "A valid email address is required", http.StatusBadRequest)
		return
	}

	key, err := auth.GenerateCode(auth.KeyLength)
	if err != nil {
		s.logger.Error("Nie udało się wygenerować klucza", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hashedKey, err := auth.HashPassword(key)
	if err != nil {
		s.logger.Error("Nie udało się zahashować klucza", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Unikalność rozstrzyga baza. Przy kolizji losujemy ponownie, nigdy nie
	// sprawdzamy wcześniej "czy wolne", bo to otwiera wyścig.
	for i := 0; i < maxUsernameRetries; i++ {
		username, err := auth.GenerateCode(auth.UsernameLength)
		if err != nil {
			s.logger.Error("Nie udało się wygenerować username", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		user, err := s.store.CreateUser(r.Context(), database.CreateUserParams{
			Username:     username,
			Email:        req.Email,
			PasswordHash: hashedKey,
		})
		if err != nil {
			if errors.Is(err, database.ErrUsernameTaken) {
				continue
			}
			if errors.Is(err, database.ErrEmailTaken) {
				http.Error(w, "Email already registered", http.StatusConflict)
				return
			}
			s.logger.Error("Nie udało się utworzyć użytkownika", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RegisterResponse{
			Username: user.Username,
			Email:    user.Email,
			Key:      key,
		})
		return
	}

	s.logger.Error("Wyczerpano próby wylosowania wolnego username", zap.Int("retries", maxUsernameRetries))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

type TokenRequest struct {
	Username string `json:"username" example:"X7K2P9"`
	Password string `json:"password" example:"A8F3K2M9Q1"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string `json:"token_type" example:"bearer"`
}

// checkCredentials zwraca użytkownika tylko przy poprawnej parze
// username+klucz i aktywnym koncie. Każda przyczyna odmowy wygląda
// z zewnątrz identycznie.
func (s *Server) checkCredentials(r *http.Request, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// @Summary      Issues an access token
// @Description  Exchanges a username and access key for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        tokenRequest   body      TokenRequest  true  "Credentials"
// @Success      200            {object}  TokenResponse
// @Failure      400            {string}  string "Invalid request body"
// @Failure      401            {string}  string "Incorrect username or password"
// @Failure      500            {string}  string "Internal Server Error"
// @Router       /api/v1/auth/token [post]
func (s *Server) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.checkCredentials(r, req.Username, req.Password)
	if err != nil {
		s.logger.Error("Nie udało się zweryfikować danych logowania", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "Incorrect username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, s.config.JWT.Algorithm, s.config.TokenTTL())
	if err != nil {
		s.logger.Error("Nie udało się wygenerować tokenu", zap.Error(err))
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

// @Summary      Logs a browser in
// @Description  Form-based login. On success the token lands in an HttpOnly cookie and the browser is sent back to the main page.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        username   formData   string  true  "Username"
// @Param        password   formData   string  true  "Access key"
// @Success      303        {string}   string  "Redirect to /"
// @Failure      401        {string}   string  "Incorrect username or password"
// @Router       /login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	user, err := s.checkCredentials(r, r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		s.logger.Error("Nie udało się zweryfikować danych logowania", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Incorrect username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, s.config.JWT.Algorithm, s.config.TokenTTL())
	if err != nil {
		s.logger.Error("Nie udało się wygenerować tokenu", zap.Error(err))
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "Bearer " + accessToken,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   s.config.JWT.ExpireMinutes * 60,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// @Summary      Logs a browser out
// @Description  Clears the token cookie. The token itself stays valid until it expires.
// @Tags         auth
// @Success      303   {string}   string  "Redirect to /"
// @Router       /logout [get]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
