package session

import "github.com/gorilla/sessions"

// Keys stored in a login session.  The verification flag is deliberately
// absent: it is read from the users table on every request.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyLanguage = "language"
)

// Flash kinds, used by templates to pick a colour.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

var flashKinds = []string{FlashSuccess, FlashError, FlashInfo}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// SetUser records a successful login.
func SetUser(s *sessions.Session, id uint64, username string) {
	s.Values[KeyUserID] = id
	s.Values[KeyUsername] = username
}

// UserID returns the logged in user's id.  Numbers come back as uint64 from
// the cookie store and as int64 from the Redis store.
func UserID(s *sessions.Session) (uint64, bool) {
	if s == nil {
		return 0, false
	}
	switch v := s.Values[KeyUserID].(type) {
	case uint64:
		return v, v != 0
	case int64:
		return uint64(v), v > 0
	case int:
		return uint64(v), v > 0
	case float64:
		return uint64(v), v > 0
	}
	return 0, false
}

func Username(s *sessions.Session) string {
	if s == nil {
		return ""
	}
	v, _ := s.Values[KeyUsername].(string)
	return v
}

func Language(s *sessions.Session) string {
	if s == nil {
		return ""
	}
	v, _ := s.Values[KeyLanguage].(string)
	return v
}

func SetLanguage(s *sessions.Session, lang string) { s.Values[KeyLanguage] = lang }

// Clear removes the login and language keys.  Pending flashes survive so a
// logout message can still be shown.
func Clear(s *sessions.Session) {
	delete(s.Values, KeyUserID)
	delete(s.Values, KeyUsername)
	delete(s.Values, KeyLanguage)
}

// AddFlash queues a message of the given kind.
func AddFlash(s *sessions.Session, kind, msg string) {
	s.AddFlash(msg, "_flash_"+kind)
}

// Flashes drains all queued messages, grouped by kind.
func Flashes(s *sessions.Session) []Flash {
	if s == nil {
		return nil
	}
	var out []Flash
	for _, kind := range flashKinds {
		for _, f := range s.Flashes("_flash_" + kind) {
			if msg, ok := f.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	return out
}

// HasFlashes reports whether any message is queued, without draining it.
func HasFlashes(s *sessions.Session) bool {
	if s == nil {
		return false
	}
	for _, kind := range flashKinds {
		if v, ok := s.Values["_flash_"+kind].([]interface{}); ok && len(v) > 0 {
			return true
		}
	}
	return false
}
