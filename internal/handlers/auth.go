package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// OwnerMiddleware extracts the owner identity from a bearer token issued
// by the external auth service. Token issuance, registration and password
// management live outside this service; we only verify the signature and
// pull the owner ID out of the claims.
func OwnerMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		owner, ok := claims["ownerID"].(string)
		if !ok || owner == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("ownerID", owner)
		c.Next()
	}
}

// ownerID reads the authenticated owner off the request context.
func ownerID(c *gin.Context) (string, bool) {
	owner, exists := c.Get("ownerID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Owner not authenticated"})
		return "", false
	}
	return owner.(string), true
}
