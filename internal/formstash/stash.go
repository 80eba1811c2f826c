// Package formstash keeps failed transaction submissions for a short time
// so a front end can redirect and then redisplay the form with its errors.
// Each draft is keyed by session and an opaque token and can be taken once.
//
// The mia CLI runs one command per process and has no session to redirect
// within, so nothing in this module calls the package. It is the library
// half of a long-running front end.
package formstash

import (
	"container/list"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/imacat/mia-accounting-django-sub000/internal/ledger"
)

// Draft is a rejected submission together with why it was rejected.
type Draft struct {
	Request ledger.SubmitRequest      `json:"request"`
	Failure *ledger.ValidationFailure `json:"failure,omitempty"`
}

type key struct {
	session string
	token   string
}

type item struct {
	key       key
	payload   []byte
	expiresAt time.Time
}

// Stash holds drafts with a TTL and evicts the least recently stored once
// full.
type Stash struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[key]*list.Element
	lru     *list.List
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// New creates a Stash holding at most maxSize drafts for ttl each.
func New(maxSize int, ttl time.Duration) *Stash {
	return &Stash{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[key]*list.Element),
		lru:     list.New(),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Put stores a snapshot of d for session and returns its token.
func (s *Stash) Put(session string, d Draft) (string, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	token, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	k := key{session: session, token: token.String()}
	s.items[k] = s.lru.PushFront(&item{key: k, payload: payload, expiresAt: now.Add(s.ttl)})

	for s.lru.Len() > s.maxSize {
		s.remove(s.lru.Back())
	}
	return k.token, nil
}

// Take returns and forgets the draft stored under session and token. A
// token from another session, an expired one or one already taken finds
// nothing.
func (s *Stash) Take(session, token string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key{session: session, token: token}]
	if !ok {
		return Draft{}, false
	}
	it := elem.Value.(*item)
	s.remove(elem)
	if s.now().After(it.expiresAt) {
		return Draft{}, false
	}

	var d Draft
	if err := json.Unmarshal(it.payload, &d); err != nil {
		return Draft{}, false
	}
	return d, true
}

// CleanExpired drops every expired draft and returns how many went.
func (s *Stash) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*item).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.remove(elem)
	}
	return len(expired)
}

// Len returns the number of drafts held, expired or not.
func (s *Stash) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *Stash) remove(elem *list.Element) {
	delete(s.items, elem.Value.(*item).key)
	s.lru.Remove(elem)
}
