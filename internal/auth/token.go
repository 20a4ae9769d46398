package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"ms-support/internal/models"
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ExtractUserFromJWT parses the JWT and pulls the claims the booking flow
// needs (sub, name, email). The signature is verified upstream by the OIDC
// middleware; SSE endpoints that receive the token out of band reuse this.
func ExtractUserFromJWT(tokenString string) (models.AuthUser, error) {
	if tokenString == "" {
		return models.AuthUser{}, errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return models.AuthUser{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.AuthUser{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return models.AuthUser{}, errors.New("subject claim not found in token")
	}

	user := models.AuthUser{ID: sub}
	if name, ok := claims["name"].(string); ok {
		user.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}

	return user, nil
}

// ExtractUserIDFromJWT extracts only the subject claim.
func ExtractUserIDFromJWT(tokenString string) (string, error) {
	user, err := ExtractUserFromJWT(tokenString)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
