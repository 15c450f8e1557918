package common

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "account_session"

// TokenBytes is the entropy of verification and reset tokens (128 bits).
const TokenBytes = 16
