package api

// LoginRequest is the body of POST /api/v1/login
type LoginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}
