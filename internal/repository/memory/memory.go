// Package memory holds in-memory repositories with the same matching rules
// as the Mongo ones. Tests use them to observe cross-record effects.
package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store backs every repository. Writes counts successful mutations and
// FailOn injects an error into the named operation.
type Store struct {
	mu         sync.Mutex
	Identities map[string]*model.Identity
	Parcels    map[primitive.ObjectID]*model.Parcel
	Riders     map[primitive.ObjectID]*model.Rider
	Payments   []*model.Payment
	Tracking   []*model.TrackingEvent
	Writes     int
	FailOn     map[string]error
}

func NewStore() *Store {
	return &Store{
		Identities: map[string]*model.Identity{},
		Parcels:    map[primitive.ObjectID]*model.Parcel{},
		Riders:     map[primitive.ObjectID]*model.Rider{},
		FailOn:     map[string]error{},
	}
}

func (s *Store) fail(op string) error {
	return s.FailOn[op]
}

func (s *Store) AddUser(email string, role model.Role) {
	s.Identities[email] = &model.Identity{ID: primitive.NewObjectID(), Email: email, Role: role}
}

func (s *Store) AddRider(email string, status model.RiderStatus) *model.Rider {
	r := &model.Rider{ID: primitive.NewObjectID(), Email: email, District: "Dhaka", Status: status, WorkStatus: model.WorkIdle}
	s.Riders[r.ID] = r
	return r
}

func (s *Store) AddParcel(owner string, ds model.DeliveryStatus, ps model.PaymentStatus) *model.Parcel {
	p := &model.Parcel{
		ID:             primitive.NewObjectID(),
		Title:          "box",
		CreatedBy:      owner,
		DeliveryStatus: ds,
		PaymentStatus:  ps,
		CreationDate:   time.Now().UTC().Add(time.Duration(len(s.Parcels)) * time.Second),
	}
	s.Parcels[p.ID] = p
	return p
}

func (s *Store) UserRepo() *UserRepo         { return &UserRepo{s} }
func (s *Store) ParcelRepo() *ParcelRepo     { return &ParcelRepo{s} }
func (s *Store) RiderRepo() *RiderRepo       { return &RiderRepo{s} }
func (s *Store) PaymentRepo() *PaymentRepo   { return &PaymentRepo{s} }
func (s *Store) TrackingRepo() *TrackingRepo { return &TrackingRepo{s} }

type UserRepo struct{ s *Store }

func (f *UserRepo) FindByEmail(_ context.Context, email string) (*model.Identity, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("users.find"); err != nil {
		return nil, err
	}
	u, ok := f.s.Identities[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *UserRepo) FindByEmailPattern(_ context.Context, pattern string) (*model.Identity, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	emails := make([]string, 0, len(f.s.Identities))
	for e := range f.s.Identities {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	for _, e := range emails {
		if re.MatchString(e) {
			cp := *f.s.Identities[e]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *UserRepo) UpsertLogin(_ context.Context, profile model.Identity, now time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.Writes++
	if u, ok := f.s.Identities[profile.Email]; ok {
		u.LastLogIn = now
		return false, nil
	}
	f.s.Identities[profile.Email] = &model.Identity{
		ID:        primitive.NewObjectID(),
		Email:     profile.Email,
		Name:      profile.Name,
		Photo:     profile.Photo,
		Role:      model.RoleUser,
		CreatedAt: now,
		LastLogIn: now,
	}
	return true, nil
}

func (f *UserRepo) SetRole(_ context.Context, email string, role model.Role) (int64, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.Identities[email]
	if !ok {
		return 0, 0, nil
	}
	if u.Role == role {
		return 1, 0, nil
	}
	f.s.Writes++
	u.Role = role
	return 1, 1, nil
}

func (f *UserRepo) SetRoleUnlessAdmin(_ context.Context, email string, role model.Role) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("users.setRole"); err != nil {
		return 0, err
	}
	u, ok := f.s.Identities[email]
	if !ok || u.Role == model.RoleAdmin || u.Role == role {
		return 0, nil
	}
	f.s.Writes++
	u.Role = role
	return 1, nil
}

type ParcelRepo struct{ s *Store }

func (f *ParcelRepo) Insert(_ context.Context, p *model.Parcel) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.Writes++
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	f.s.Parcels[p.ID] = &cp
	return nil
}

func (f *ParcelRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Parcel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.Parcels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *ParcelRepo) List(_ context.Context, flt repository.ParcelFilter) ([]*model.Parcel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Parcel
	for _, p := range f.s.Parcels {
		if flt.CreatedBy != "" && p.CreatedBy != flt.CreatedBy {
			continue
		}
		if flt.DeliveryStatus != "" && p.DeliveryStatus != flt.DeliveryStatus {
			continue
		}
		if flt.PaymentStatus != "" && p.PaymentStatus != flt.PaymentStatus {
			continue
		}
		if flt.AssignedRider != "" && p.AssignedRiderEmail != flt.AssignedRider {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreationDate.After(out[j].CreationDate) })
	return out, nil
}

func (f *ParcelRepo) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.Parcels[id]; !ok {
		return 0, nil
	}
	f.s.Writes++
	delete(f.s.Parcels, id)
	return 1, nil
}

func (f *ParcelRepo) Assign(_ context.Context, id primitive.ObjectID, rider *model.Rider, at time.Time) (int64, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("parcels.assign"); err != nil {
		return 0, 0, err
	}
	p, ok := f.s.Parcels[id]
	if !ok || p.DeliveryStatus == model.DeliveryDelivered {
		return 0, 0, nil
	}
	if p.AssignedRider != nil && *p.AssignedRider != rider.ID {
		return 0, 0, nil
	}
	f.s.Writes++
	rid := rider.ID
	p.DeliveryStatus = model.DeliveryInTransit
	p.AssignedRider = &rid
	p.AssignedRiderEmail = rider.Email
	p.AssignedAt = &at
	return 1, 1, nil
}

func (f *ParcelRepo) MarkPaid(_ context.Context, id primitive.ObjectID) (int64, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("parcels.markPaid"); err != nil {
		return 0, 0, err
	}
	p, ok := f.s.Parcels[id]
	if !ok {
		return 0, 0, nil
	}
	if p.PaymentStatus == model.PaymentPaid {
		return 1, 0, nil
	}
	f.s.Writes++
	p.PaymentStatus = model.PaymentPaid
	return 1, 1, nil
}

func (f *ParcelRepo) MarkDelivered(_ context.Context, id, riderID primitive.ObjectID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.Parcels[id]
	if !ok || p.AssignedRider == nil || *p.AssignedRider != riderID || p.DeliveryStatus != model.DeliveryInTransit {
		return 0, nil
	}
	f.s.Writes++
	p.DeliveryStatus = model.DeliveryDelivered
	return 1, nil
}

func (f *ParcelRepo) CountInTransit(_ context.Context, riderID primitive.ObjectID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, p := range f.s.Parcels {
		if p.AssignedRider != nil && *p.AssignedRider == riderID && p.DeliveryStatus == model.DeliveryInTransit {
			n++
		}
	}
	return n, nil
}

type RiderRepo struct{ s *Store }

func (f *RiderRepo) Insert(_ context.Context, r *model.Rider) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.Riders {
		if existing.Email == r.Email {
			return repository.ErrDuplicate
		}
	}
	f.s.Writes++
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	cp := *r
	f.s.Riders[r.ID] = &cp
	return nil
}

func (f *RiderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Rider, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("riders.find"); err != nil {
		return nil, err
	}
	r, ok := f.s.Riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *RiderRepo) FindByEmail(_ context.Context, email string) (*model.Rider, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.Riders {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *RiderRepo) ListByDistrict(_ context.Context, district string, status model.RiderStatus) ([]*model.Rider, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Rider
	for _, r := range f.s.Riders {
		if !strings.EqualFold(r.District, district) {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *RiderRepo) ListByStatus(_ context.Context, status model.RiderStatus) ([]*model.Rider, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Rider
	for _, r := range f.s.Riders {
		if r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *RiderRepo) SetStatus(_ context.Context, id primitive.ObjectID, status model.RiderStatus) (int64, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.Riders[id]
	if !ok {
		return 0, 0, nil
	}
	if r.Status == status {
		return 1, 0, nil
	}
	f.s.Writes++
	r.Status = status
	return 1, 1, nil
}

func (f *RiderRepo) SetWorkStatus(_ context.Context, id primitive.ObjectID, ws model.WorkStatus) (int64, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.fail("riders.setWork"); err != nil {
		return 0, 0, err
	}
	r, ok := f.s.Riders[id]
	if !ok {
		return 0, 0, nil
	}
	if r.WorkStatus == ws {
		return 1, 0, nil
	}
	f.s.Writes++
	r.WorkStatus = ws
	return 1, 1, nil
}

func (f *RiderRepo) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.Riders[id]; !ok {
		return 0, nil
	}
	f.s.Writes++
	delete(f.s.Riders, id)
	return 1, nil
}

type PaymentRepo struct{ s *Store }

func (f *PaymentRepo) Insert(_ context.Context, p *model.Payment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.Payments {
		if existing.TransactionID == p.TransactionID {
			return repository.ErrDuplicate
		}
	}
	f.s.Writes++
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	f.s.Payments = append(f.s.Payments, &cp)
	return nil
}

func (f *PaymentRepo) FindByTransactionID(_ context.Context, txID string) (*model.Payment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.Payments {
		if p.TransactionID == txID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *PaymentRepo) List(_ context.Context, email string) ([]*model.Payment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range f.s.Payments {
		if email == "" || p.Email == email {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type TrackingRepo struct{ s *Store }

func (f *TrackingRepo) Insert(_ context.Context, e *model.TrackingEvent) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.Writes++
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	cp := *e
	f.s.Tracking = append(f.s.Tracking, &cp)
	return nil
}

func (f *TrackingRepo) ListByTrackingID(_ context.Context, id string) ([]*model.TrackingEvent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*model.TrackingEvent
	for _, e := range f.s.Tracking {
		if e.TrackingID == id {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

