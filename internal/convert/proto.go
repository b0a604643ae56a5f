// Package convert maps domain types to and from the structpb messages of the
// Cloud service.
package convert

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	model "github.com/and161185/subtrack/internal/model"
)

// Field names shared by both ends.
const (
	FieldID            = "id"
	FieldUserID        = "user_id"
	FieldEmail         = "email"
	FieldPassword      = "password"
	FieldUser          = "user"
	FieldAccessToken   = "access_token"
	FieldExpiresAt     = "expires_at"
	FieldSubscription  = "subscription"
	FieldSubscriptions = "subscriptions"
	FieldPatch         = "patch"
)

// --- helpers ---

func str(v string) *structpb.Value { return structpb.NewStringValue(v) }

func ts(t time.Time) *structpb.Value {
	if t.IsZero() {
		return nil
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

func put(s *structpb.Struct, key string, v *structpb.Value) {
	if v != nil {
		s.Fields[key] = v
	}
}

func newStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func has(s *structpb.Struct, key string) bool {
	_, ok := s.GetFields()[key]
	return ok
}

func getTime(s *structpb.Struct, key string) (time.Time, error) {
	raw := getString(s, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func getStruct(s *structpb.Struct, key string) (*structpb.Struct, error) {
	v, ok := s.GetFields()[key]
	if !ok || v.GetStructValue() == nil {
		return nil, fmt.Errorf("missing %s", key)
	}
	return v.GetStructValue(), nil
}

// --- Subscription ---

// ToProtoSubscription encodes a record. Zero id and timestamps are omitted.
func ToProtoSubscription(sub model.Subscription) *structpb.Struct {
	s := newStruct()
	if !sub.ID.IsZero() {
		put(s, FieldID, str(sub.ID.String()))
	}
	if sub.UserID != "" {
		put(s, FieldUserID, str(sub.UserID))
	}
	put(s, "name", str(sub.Name))
	put(s, "price", str(sub.Price.String()))
	put(s, "currency", str(string(sub.Currency)))
	put(s, "renewal_date", str(sub.RenewalDate.String()))
	put(s, "category", str(string(sub.Category)))
	put(s, "notes", str(sub.Notes))
	put(s, "is_active", structpb.NewBoolValue(sub.IsActive))
	days := make([]*structpb.Value, 0, len(sub.ReminderDays))
	for _, d := range sub.ReminderDays {
		days = append(days, structpb.NewNumberValue(float64(d)))
	}
	put(s, "reminder_days", structpb.NewListValue(&structpb.ListValue{Values: days}))
	put(s, "created_at", ts(sub.CreatedAt))
	put(s, "updated_at", ts(sub.UpdatedAt))
	return s
}

// FromProtoSubscription decodes a record.
func FromProtoSubscription(s *structpb.Struct) (model.Subscription, error) {
	if s == nil {
		return model.Subscription{}, fmt.Errorf("nil subscription")
	}
	var sub model.Subscription
	var err error
	if raw := getString(s, FieldID); raw != "" {
		if sub.ID, err = model.ParseSubscriptionID(raw); err != nil {
			return model.Subscription{}, fmt.Errorf("invalid id: %w", err)
		}
	}
	sub.UserID = getString(s, FieldUserID)
	sub.Name = getString(s, "name")
	if raw := getString(s, "price"); raw != "" {
		if sub.Price, err = decimal.NewFromString(raw); err != nil {
			return model.Subscription{}, fmt.Errorf("invalid price: %w", err)
		}
	}
	sub.Currency = model.Currency(getString(s, "currency"))
	if raw := getString(s, "renewal_date"); raw != "" {
		if sub.RenewalDate, err = model.ParseDate(raw); err != nil {
			return model.Subscription{}, err
		}
	}
	sub.Category = model.Category(getString(s, "category")).OrDefault()
	sub.Notes = getString(s, "notes")
	sub.IsActive = s.GetFields()["is_active"].GetBoolValue()
	for _, v := range s.GetFields()["reminder_days"].GetListValue().GetValues() {
		sub.ReminderDays = append(sub.ReminderDays, int(v.GetNumberValue()))
	}
	if sub.CreatedAt, err = getTime(s, "created_at"); err != nil {
		return model.Subscription{}, err
	}
	if sub.UpdatedAt, err = getTime(s, "updated_at"); err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

// --- SubscriptionPatch ---

// ToProtoPatch encodes only the fields set in p.
func ToProtoPatch(p model.SubscriptionPatch) *structpb.Struct {
	s := newStruct()
	if p.Name != nil {
		put(s, "name", str(*p.Name))
	}
	if p.Price != nil {
		put(s, "price", str(p.Price.String()))
	}
	if p.Currency != nil {
		put(s, "currency", str(string(*p.Currency)))
	}
	if p.RenewalDate != nil {
		put(s, "renewal_date", str(p.RenewalDate.String()))
	}
	if p.Category != nil {
		put(s, "category", str(string(*p.Category)))
	}
	if p.Notes != nil {
		put(s, "notes", str(*p.Notes))
	}
	if p.IsActive != nil {
		put(s, "is_active", structpb.NewBoolValue(*p.IsActive))
	}
	return s
}

// FromProtoPatch decodes a patch; absent keys stay nil.
func FromProtoPatch(s *structpb.Struct) (model.SubscriptionPatch, error) {
	var p model.SubscriptionPatch
	if has(s, "name") {
		v := getString(s, "name")
		p.Name = &v
	}
	if has(s, "price") {
		d, err := decimal.NewFromString(getString(s, "price"))
		if err != nil {
			return p, fmt.Errorf("invalid price: %w", err)
		}
		p.Price = &d
	}
	if has(s, "currency") {
		c := model.Currency(getString(s, "currency"))
		p.Currency = &c
	}
	if has(s, "renewal_date") {
		d, err := model.ParseDate(getString(s, "renewal_date"))
		if err != nil {
			return p, err
		}
		p.RenewalDate = &d
	}
	if has(s, "category") {
		c := model.Category(getString(s, "category"))
		p.Category = &c
	}
	if has(s, "notes") {
		v := getString(s, "notes")
		p.Notes = &v
	}
	if has(s, "is_active") {
		v := s.GetFields()["is_active"].GetBoolValue()
		p.IsActive = &v
	}
	return p, nil
}

// --- User / auth ---

// ToProtoUser encodes the public part of a user.
func ToProtoUser(usr model.User) *structpb.Struct {
	s := newStruct()
	put(s, FieldID, str(usr.ID.String()))
	put(s, FieldEmail, str(usr.Email))
	put(s, "created_at", ts(usr.CreatedAt))
	return s
}

// FromProtoUser decodes a user.
func FromProtoUser(s *structpb.Struct) (model.User, error) {
	var usr model.User
	if err := usr.ID.UnmarshalText([]byte(getString(s, FieldID))); err != nil {
		return model.User{}, fmt.Errorf("invalid user id: %w", err)
	}
	usr.Email = getString(s, FieldEmail)
	var err error
	if usr.CreatedAt, err = getTime(s, "created_at"); err != nil {
		return model.User{}, err
	}
	return usr, nil
}

// CredentialsRequest builds a SignUp/SignIn request.
func CredentialsRequest(c model.Credentials) *structpb.Struct {
	s := newStruct()
	put(s, FieldEmail, str(c.Email))
	put(s, FieldPassword, str(c.Password))
	return s
}

// FromCredentialsRequest reads a SignUp/SignIn request.
func FromCredentialsRequest(s *structpb.Struct) model.Credentials {
	return model.Credentials{Email: getString(s, FieldEmail), Password: getString(s, FieldPassword)}
}

// AuthResponse builds a SignUp/SignIn response. An empty token is omitted.
func AuthResponse(usr model.User, tok model.Tokens) *structpb.Struct {
	s := newStruct()
	put(s, FieldUser, structpb.NewStructValue(ToProtoUser(usr)))
	if tok.AccessToken != "" {
		put(s, FieldAccessToken, str(tok.AccessToken))
		put(s, FieldExpiresAt, ts(tok.ExpiresAt))
	}
	return s
}

// FromAuthResponse reads a SignUp/SignIn response. The session is nil when
// no token was issued.
func FromAuthResponse(s *structpb.Struct) (model.User, *model.Session, error) {
	us, err := getStruct(s, FieldUser)
	if err != nil {
		return model.User{}, nil, err
	}
	usr, err := FromProtoUser(us)
	if err != nil {
		return model.User{}, nil, err
	}
	token := getString(s, FieldAccessToken)
	if token == "" {
		return usr, nil, nil
	}
	exp, err := getTime(s, FieldExpiresAt)
	if err != nil {
		return model.User{}, nil, err
	}
	return usr, &model.Session{User: usr, AccessToken: token, ExpiresAt: exp}, nil
}

// UserResponse wraps a user for GetUser.
func UserResponse(usr model.User) *structpb.Struct {
	s := newStruct()
	put(s, FieldUser, structpb.NewStructValue(ToProtoUser(usr)))
	return s
}

// FromUserResponse reads a GetUser response.
func FromUserResponse(s *structpb.Struct) (model.User, error) {
	us, err := getStruct(s, FieldUser)
	if err != nil {
		return model.User{}, err
	}
	return FromProtoUser(us)
}

// --- subscription requests ---

// InsertRequest builds an InsertSubscription request.
func InsertRequest(userID string, sub model.Subscription) *structpb.Struct {
	sub.ID = model.SubscriptionID{}
	s := newStruct()
	put(s, FieldUserID, str(userID))
	put(s, FieldSubscription, structpb.NewStructValue(ToProtoSubscription(sub)))
	return s
}

// FromInsertRequest reads an InsertSubscription request.
func FromInsertRequest(s *structpb.Struct) (u.UUID, model.Subscription, error) {
	uid, err := u.FromString(getString(s, FieldUserID))
	if err != nil {
		return u.Nil, model.Subscription{}, fmt.Errorf("invalid user_id: %w", err)
	}
	ss, err := getStruct(s, FieldSubscription)
	if err != nil {
		return u.Nil, model.Subscription{}, err
	}
	sub, err := FromProtoSubscription(ss)
	if err != nil {
		return u.Nil, model.Subscription{}, err
	}
	return uid, sub, nil
}

// UpdateRequest builds an UpdateSubscription request.
func UpdateRequest(id model.SubscriptionID, p model.SubscriptionPatch) *structpb.Struct {
	s := IDRequest(id)
	put(s, FieldPatch, structpb.NewStructValue(ToProtoPatch(p)))
	return s
}

// FromUpdateRequest reads an UpdateSubscription request.
func FromUpdateRequest(s *structpb.Struct) (u.UUID, model.SubscriptionPatch, error) {
	id, err := FromIDRequest(s)
	if err != nil {
		return u.Nil, model.SubscriptionPatch{}, err
	}
	ps, err := getStruct(s, FieldPatch)
	if err != nil {
		return u.Nil, model.SubscriptionPatch{}, err
	}
	p, err := FromProtoPatch(ps)
	if err != nil {
		return u.Nil, model.SubscriptionPatch{}, err
	}
	return id, p, nil
}

// IDRequest builds a request addressing one remote record.
func IDRequest(id model.SubscriptionID) *structpb.Struct {
	s := newStruct()
	put(s, FieldID, str(id.String()))
	return s
}

// FromIDRequest reads the row id of a request. Only remote ids are accepted.
func FromIDRequest(s *structpb.Struct) (u.UUID, error) {
	id, err := u.FromString(getString(s, FieldID))
	if err != nil {
		return u.Nil, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// UserIDRequest builds a ListSubscriptions request.
func UserIDRequest(userID string) *structpb.Struct {
	s := newStruct()
	put(s, FieldUserID, str(userID))
	return s
}

// FromUserIDRequest reads a ListSubscriptions request.
func FromUserIDRequest(s *structpb.Struct) (u.UUID, error) {
	id, err := u.FromString(getString(s, FieldUserID))
	if err != nil {
		return u.Nil, fmt.Errorf("invalid user_id: %w", err)
	}
	return id, nil
}

// SubscriptionResponse wraps one record.
func SubscriptionResponse(sub model.Subscription) *structpb.Struct {
	s := newStruct()
	put(s, FieldSubscription, structpb.NewStructValue(ToProtoSubscription(sub)))
	return s
}

// FromSubscriptionResponse unwraps one record.
func FromSubscriptionResponse(s *structpb.Struct) (model.Subscription, error) {
	ss, err := getStruct(s, FieldSubscription)
	if err != nil {
		return model.Subscription{}, err
	}
	return FromProtoSubscription(ss)
}

// SubscriptionsResponse wraps a list.
func SubscriptionsResponse(subs []model.Subscription) *structpb.Struct {
	vals := make([]*structpb.Value, 0, len(subs))
	for _, sub := range subs {
		vals = append(vals, structpb.NewStructValue(ToProtoSubscription(sub)))
	}
	s := newStruct()
	put(s, FieldSubscriptions, structpb.NewListValue(&structpb.ListValue{Values: vals}))
	return s
}

// FromSubscriptionsResponse unwraps a list.
func FromSubscriptionsResponse(s *structpb.Struct) ([]model.Subscription, error) {
	vals := s.GetFields()[FieldSubscriptions].GetListValue().GetValues()
	out := make([]model.Subscription, 0, len(vals))
	for i, v := range vals {
		sub, err := FromProtoSubscription(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("subscription[%d]: %w", i, err)
		}
		out = append(out, sub)
	}
	return out, nil
}
