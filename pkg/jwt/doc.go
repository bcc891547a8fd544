// Package jwt issues and validates the HS256 session tokens of the City Quest API.
//
// A player receives a token after Telegram login; until the registration form
// is submitted the token carries only the Telegram ID. Admin tokens carry
// role "admin".
//
//	svc, err := jwt.NewService(jwt.Config{
//	    Secret:         os.Getenv("JWT_SECRET"),
//	    Issuer:         "cityquest.forgo.software",
//	    ExpirationMins: 1440,
//	})
//
//	token, expiresAt, err := svc.Issue(user.ID, user.TelegramID, jwt.RoleUser)
//
//	claims, err := svc.Validate(token)
//	if errors.Is(err, jwt.ErrTokenExpired) {
//	    // ask the Mini-App to log in again
//	}
package jwt
