package middlewares

const (
	CtxRequestID = "request_id"
	CtxClaims    = "auth.claims"
	CtxUserID    = "auth.userID"
	CtxUsername  = "auth.username"
	CtxRole      = "auth.role"
)
