package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

var (
	JWT_LIFESPAN time.Duration = time.Hour
)

type ctxKey string

const jwtKey ctxKey = "jwt"

//---
// Structs
//

// Represents an operator allowed to log in
type User struct {
	Email    string
	Name     string
	Password string
}

// Sets the User.Password to the hashed value for the provided plain text
func (u *User) SetPassword(pass []byte) error {
	hash, err := bcrypt.GenerateFromPassword(pass, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// Compares User.Password with the provided plain text.
// Returns values directly as provided by the bcrypt library for downstream processing.
func (u *User) VerifyPassword(pass []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), pass)
}

// findUser looks an operator up in the device config.
func findUser(email string) (user User, ok bool) {
	if ENV.Config == nil {
		return user, false
	}
	op, ok := ENV.Config.Operator(email)
	if !ok {
		return user, false
	}
	return User{Email: op.Email, Name: op.Name, Password: op.Password}, true
}

//---
// Generic payloads
//---

// Login payload
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *LoginPayload) Bind(r *http.Request) error {
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type JWTPayload struct {
	SignedToken string `json:"token"`
}

//---
// Helper functions
//

// Produce a standard format JWT token
func newJWT(sub string) (ts string, err error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Issuer:    ENV.JWT_ISSUER,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(JWT_LIFESPAN).Unix(),
		Subject:   sub,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(ENV.jwtSecret)
}

func jwtKeyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS512 {
		return nil, errors.New("unexpected signing method")
	}
	return ENV.jwtSecret, nil
}

//---
// Views
//---

// Login looks up an operator, verifies password and returns response
func Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	user, ok := findUser(data.Email)
	if !ok {
		render.Render(w, r, ErrNotFound)
		return
	}

	err := user.VerifyPassword([]byte(data.Password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			render.Render(w, r, ErrPermissionDenied(errors.New("Invalid password")))
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	tokenString, err := newJWT(user.Email)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	ENV.Logger.Infow("operator logged in", "email", user.Email)
	render.JSON(w, r, JWTPayload{tokenString})
}

// Provides a new token to the client
func JWTRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := r.Context().Value(jwtKey).(*jwt.Token)
	if !ok {
		render.Render(w, r, ErrUnauthorized(JWTEmpty))
		return
	}
	claims := token.Claims.(*jwt.StandardClaims)

	tokenString, err := newJWT(claims.Subject)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, JWTPayload{tokenString})
}

//---
// Authentication middleware
//---

var (
	JWTEmpty = errors.New("Bearer token not provided")
)

func ValidateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var tokenStr string

		// Get token from query params, browsers cannot set headers on websockets
		tokenStr = r.URL.Query().Get("jwt")

		// Get token from authorization header
		if tokenStr == "" {
			bearer := r.Header.Get("Authorization")
			if len(bearer) > 7 && strings.ToUpper(bearer[0:6]) == "BEARER" {
				tokenStr = bearer[7:]
			}
		}

		// Get token from cookie
		if tokenStr == "" {
			cookie, err := r.Cookie("jwt")
			if err == nil {
				tokenStr = cookie.Value
			}
		}

		if tokenStr == "" {
			render.Render(w, r, ErrUnauthorized(JWTEmpty))
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr, &jwt.StandardClaims{}, jwtKeyFunc)
		if err != nil {
			reason := errors.New("Invalid token")
			if jwterr, ok := err.(*jwt.ValidationError); ok && jwterr.Errors&jwt.ValidationErrorExpired != 0 {
				reason = errors.New("Token has expired")
			}

			render.Render(w, r, ErrUnauthorized(reason))
			return
		}

		if !token.Valid {
			render.Render(w, r, ErrUnauthorized(errors.New("Invalid token")))
			return
		}

		ctx = context.WithValue(ctx, jwtKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
