// Package session keeps login state server side.  The browser only holds a
// signed random session id; the values live in Redis under session:{id}.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// CookieName is the name of the session cookie.
const CookieName = "commons_session"

// NewStore returns a Redis backed store, or a signed cookie store when Redis
// is not configured.
func NewStore(rdb *redis.Client, secret string, opts sessions.Options) sessions.Store {
	if rdb == nil {
		cs := sessions.NewCookieStore([]byte(secret))
		o := opts
		cs.Options = &o
		cs.MaxAge(opts.MaxAge)
		return cs
	}
	return NewRedisStore(rdb, secret, opts)
}

// RedisStore implements sessions.Store on top of go-redis.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	Options *sessions.Options
	prefix  string
}

func NewRedisStore(rdb *redis.Client, secret string, opts sessions.Options) *RedisStore {
	codecs := securecookie.CodecsFromPairs([]byte(secret))
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	o := opts
	return &RedisStore{client: rdb, codecs: codecs, Options: &o, prefix: "session:"}
}

// Get returns the session cached in the request registry, loading it on
// first use.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie.  A missing, forged or
// expired cookie yields a fresh empty session; only Redis failures are
// returned as errors.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return sess, nil
	}
	found, err := s.load(r.Context(), id, sess)
	if err != nil {
		return sess, err
	}
	if found {
		sess.ID = id
		sess.IsNew = false
	}
	return sess, nil
}

// Save persists the session and writes the cookie.  A negative MaxAge
// deletes the record and expires the cookie.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	ctx := r.Context()
	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.client.Del(ctx, s.prefix+sess.ID).Err(); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if err := s.store(ctx, sess); err != nil {
		return err
	}
	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

func (s *RedisStore) ttl(sess *sessions.Session) time.Duration {
	if sess.Options.MaxAge > 0 {
		return time.Duration(sess.Options.MaxAge) * time.Second
	}
	return 24 * time.Hour
}

func (s *RedisStore) store(ctx context.Context, sess *sessions.Session) error {
	rec := make(map[string]interface{}, len(sess.Values))
	for k, v := range sess.Values {
		ks, ok := k.(string)
		if !ok {
			return fmt.Errorf("session key %v is not a string", k)
		}
		rec[ks] = v
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sess.ID, b, s.ttl(sess)).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, sess *sessions.Session) (bool, error) {
	b, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec map[string]interface{}
	if err := dec.Decode(&rec); err != nil {
		// A corrupt record is treated like an expired one.
		return false, nil
	}
	for k, v := range rec {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		sess.Values[k] = v
	}
	return true, nil
}
