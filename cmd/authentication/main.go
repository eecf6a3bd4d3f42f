// This is a **mock authentication service**, designed to provide JWT tokens
// for the timekeeping service, simulating user authentication.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gartstein/timeclock/internal/attendance/auth"
	"github.com/google/uuid"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

// tokenHandler generates a JWT and returns it in JSON response
func tokenHandler(w http.ResponseWriter, r *http.Request) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}

	// Simulate an authenticated employee of a company
	identity := auth.Identity{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Role:       "employee",
	}
	if v := r.URL.Query().Get("company_id"); v != "" {
		if companyID, err := uuid.Parse(v); err == nil {
			identity.CompanyID = companyID
		}
	}

	token, err := auth.GenerateToken(identity, secret)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := TokenResponse{Token: token}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		http.Error(w, "Failed to encode token", http.StatusInternalServerError)
	}
}

func main() {
	port := defaultPort
	http.HandleFunc("/token", tokenHandler)

	log.Printf("Authentication service running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
