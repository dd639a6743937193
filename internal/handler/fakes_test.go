package handler

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/queue"
	"github.com/iliyamo/community-commons/internal/repository"
	"github.com/iliyamo/community-commons/internal/utils"
)

// In-memory stand-ins for the repositories.  They mirror the repository
// contracts, sentinel errors included.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
	tokens map[uint64]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint64]*model.User{}, tokens: map[uint64]string{}}
}

func (f *fakeUsers) Create(_ context.Context, nu model.NewUser, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == nu.Username {
			return 0, repository.ErrUsernameExists
		}
		if u.Email == nu.Email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.byID[f.nextID] = &model.User{
		ID: f.nextID, Username: nu.Username, Email: nu.Email, PasswordHash: hash,
		FirstName: nu.FirstName, LastName: nu.LastName, IsActive: true, JoinDate: time.Now().UTC(),
	}
	return f.nextID, nil
}

// add inserts an active user with the given password and optional location.
func (f *fakeUsers) add(username, password, location string) *model.User {
	id, err := f.Create(context.Background(), model.NewUser{
		Username: username, Email: username + "@example.org", FirstName: "Test", LastName: "User", Password: password,
	}, 4)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	if location != "" {
		u.Location = sql.NullString{String: location, Valid: true}
	}
	cp := *u
	return &cp
}

func (f *fakeUsers) get(id uint64) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetActiveByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].LastLogin = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	return nil
}

func (f *fakeUsers) ApplyRating(_ context.Context, id uint64, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || !u.IsActive {
		return repository.ErrUserNotFound
	}
	u.Rating = model.IncrementalMean(u.Rating, u.RatingCount, rating)
	u.RatingCount++
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uint64, p model.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FirstName, u.LastName = p.FirstName, p.LastName
	u.Location = sql.NullString{String: p.Location, Valid: p.Location != ""}
	return nil
}

func (f *fakeUsers) SetVerificationToken(_ context.Context, id uint64, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[id] = tokenID
	return nil
}

func (f *fakeUsers) RedeemVerification(_ context.Context, id uint64, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.IsVerified || f.tokens[id] == "" || f.tokens[id] != tokenID {
		return repository.ErrTokenNotRedeemable
	}
	u.IsVerified = true
	delete(f.tokens, id)
	return nil
}

type fakeCategories struct{ list []model.Category }

func (f *fakeCategories) ListActive(context.Context) ([]model.Category, error) { return f.list, nil }

func (f *fakeCategories) GetActiveByID(_ context.Context, id uint64) (*model.Category, error) {
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i], nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

type fakeResources struct {
	mu   sync.Mutex
	list []model.ResourceListing
}

func (f *fakeResources) add(r model.Resource) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uint64(len(f.list) + 1)
	f.list = append(f.list, model.ResourceListing{Resource: r, CategoryName: "Tools"})
	return r.ID
}

func (f *fakeResources) Create(_ context.Context, nr model.NewResource) (uint64, error) {
	return f.add(model.Resource{
		Title: nr.Title, Description: nr.Description, CategoryID: nr.CategoryID, Location: nr.Location,
		OwnerID: nr.OwnerID, IsAvailable: true, IsActive: true,
	}), nil
}

func (f *fakeResources) GetActiveByID(_ context.Context, id uint64) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.list {
		if r.ID == id && r.IsActive {
			cp := r.Resource
			return &cp, nil
		}
	}
	return nil, repository.ErrResourceNotFound
}

func (f *fakeResources) filter(keep func(model.ResourceListing) bool) []model.ResourceListing {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ResourceListing
	for _, r := range f.list {
		if r.IsActive && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeResources) ListActive(context.Context) ([]model.ResourceListing, error) {
	return f.filter(func(model.ResourceListing) bool { return true }), nil
}

func (f *fakeResources) ListActiveByCategory(_ context.Context, categoryID uint64) ([]model.ResourceListing, error) {
	return f.filter(func(r model.ResourceListing) bool { return r.CategoryID == categoryID }), nil
}

func (f *fakeResources) ListActiveByOwner(_ context.Context, ownerID uint64) ([]model.ResourceListing, error) {
	return f.filter(func(r model.ResourceListing) bool { return r.OwnerID == ownerID }), nil
}

func (f *fakeResources) update(id, ownerID uint64, apply func(*model.Resource)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.list {
		if f.list[i].ID == id && f.list[i].IsActive && f.list[i].OwnerID == ownerID {
			apply(&f.list[i].Resource)
			return nil
		}
	}
	return repository.ErrResourceNotFound
}

func (f *fakeResources) SetAvailability(_ context.Context, id, ownerID uint64, available bool) error {
	return f.update(id, ownerID, func(r *model.Resource) { r.IsAvailable = available })
}

func (f *fakeResources) SoftDelete(_ context.Context, id, ownerID uint64) error {
	return f.update(id, ownerID, func(r *model.Resource) { r.IsActive = false })
}

type fakeRequests struct {
	mu      sync.Mutex
	created []model.Request
	// respondErr and cancelErr are returned by Respond and Cancel.
	respondErr error
	cancelErr  error
	responded  []bool
}

func (f *fakeRequests) Create(_ context.Context, resourceID, requesterID uint64, message string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uint64(len(f.created) + 1)
	f.created = append(f.created, model.Request{
		ID: id, ResourceID: resourceID, RequesterID: requesterID, Status: model.RequestPending,
		Message: sql.NullString{String: message, Valid: true}, IsActive: true,
	})
	return id, nil
}

func (f *fakeRequests) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeRequests) ListIncoming(context.Context, uint64) ([]model.RequestDetail, error) {
	return nil, nil
}

func (f *fakeRequests) ListOutgoing(context.Context, uint64) ([]model.RequestDetail, error) {
	return nil, nil
}

func (f *fakeRequests) Respond(_ context.Context, _, _ uint64, accept bool, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.respondErr != nil {
		return f.respondErr
	}
	f.responded = append(f.responded, accept)
	return nil
}

func (f *fakeRequests) Cancel(context.Context, uint64, uint64) error { return f.cancelErr }

type fakeMessages struct {
	mu   sync.Mutex
	sent []model.Message
}

func (f *fakeMessages) Create(_ context.Context, senderID, receiverID uint64, content string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uint64(len(f.sent) + 1)
	f.sent = append(f.sent, model.Message{
		ID: id, SenderID: senderID, ReceiverID: receiverID, Content: content,
		SentAt: time.Now().UTC(), IsActive: true,
	})
	return id, nil
}

func (f *fakeMessages) views(keep func(model.Message) bool) []model.MessageView {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MessageView
	for _, m := range f.sent {
		if m.IsActive && keep(m) {
			out = append(out, model.MessageView{Message: m})
		}
	}
	return out
}

func (f *fakeMessages) ListInbox(_ context.Context, userID uint64) ([]model.MessageView, error) {
	return f.views(func(m model.Message) bool { return m.ReceiverID == userID }), nil
}

func (f *fakeMessages) ListSent(_ context.Context, userID uint64) ([]model.MessageView, error) {
	return f.views(func(m model.Message) bool { return m.SenderID == userID }), nil
}

func (f *fakeMessages) MarkRead(_ context.Context, id, receiverID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sent {
		if f.sent[i].ID == id && f.sent[i].ReceiverID == receiverID && f.sent[i].IsActive {
			f.sent[i].IsRead = true
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (f *fakeMessages) SoftDelete(_ context.Context, id, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sent {
		m := &f.sent[i]
		if m.ID == id && m.IsActive && (m.SenderID == userID || m.ReceiverID == userID) {
			m.IsActive = false
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.EventListing
	rsvps  map[[2]uint64]string
}

func newFakeEvents() *fakeEvents { return &fakeEvents{rsvps: map[[2]uint64]string{}} }

func (f *fakeEvents) Create(_ context.Context, e model.Event) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uint64(len(f.events) + 1)
	e.Status = model.EventActive
	e.IsActive = true
	f.events = append(f.events, model.EventListing{Event: e, OrganizerUsername: "organizer"})
	return e.ID, nil
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (*model.EventListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id && e.IsActive {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (f *fakeEvents) ListUpcoming(_ context.Context, now time.Time) ([]model.EventListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EventListing
	for _, e := range f.events {
		if e.IsActive && e.Status == model.EventActive && !e.EventDate.Before(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (f *fakeEvents) Cancel(_ context.Context, id, organizerID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		e := &f.events[i]
		if e.ID != id || !e.IsActive {
			continue
		}
		if e.OrganizerID != organizerID {
			return repository.ErrForbidden
		}
		if e.Status != model.EventActive {
			return repository.ErrInvalidTransition
		}
		e.Status = model.EventCancelled
		return nil
	}
	return repository.ErrEventNotFound
}

func (f *fakeEvents) UpsertRSVP(_ context.Context, eventID, userID uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rsvps[[2]uint64{eventID, userID}] = status
	return nil
}

func (f *fakeEvents) GetRSVPStatus(_ context.Context, eventID, userID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rsvps[[2]uint64{eventID, userID}], nil
}

func (f *fakeEvents) CountRSVPs(_ context.Context, eventID uint64) (model.RSVPCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c model.RSVPCounts
	for k, s := range f.rsvps {
		if k[0] != eventID {
			continue
		}
		switch s {
		case model.RSVPGoing:
			c.Going++
		case model.RSVPMaybe:
			c.Maybe++
		case model.RSVPDeclined:
			c.Declined++
		}
	}
	return c, nil
}

type auditCall struct {
	UserID uint64
	Action string
}

type fakeAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (f *fakeAudit) Record(_ context.Context, userID uint64, action, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, auditCall{UserID: userID, Action: action})
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Action)
	}
	return out
}

type fakePublisher struct {
	mu           sync.Mutex
	verification []queue.VerificationRequestedEvent
	requested    []queue.ResourceRequestedEvent
}

func (f *fakePublisher) VerificationRequested(_ context.Context, ev queue.VerificationRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verification = append(f.verification, ev)
	return nil
}

func (f *fakePublisher) ResourceRequested(_ context.Context, ev queue.ResourceRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, ev)
	return nil
}

func (f *fakePublisher) lastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verification) == 0 {
		return ""
	}
	return f.verification[len(f.verification)-1].Token
}
