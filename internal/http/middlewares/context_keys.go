package middlewares

const (
	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"
	ctxEmailKey  = "auth.email"
)
