package convert

import (
	"testing"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	model "github.com/and161185/subtrack/internal/model"
)

func sample() model.Subscription {
	return model.Subscription{
		ID:           model.RemoteID(u.Must(u.NewV4())),
		UserID:       u.Must(u.NewV4()).String(),
		Name:         "Netflix",
		Price:        decimal.RequireFromString("15.99"),
		Currency:     model.USD,
		RenewalDate:  model.Date{Year: 2025, Month: time.June, Day: 3},
		Category:     model.CategoryStreaming,
		Notes:        "family plan",
		IsActive:     true,
		ReminderDays: []int{7, 1},
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC),
		UpdatedAt:    time.Date(2025, 1, 3, 3, 4, 5, 0, time.UTC),
	}
}

func TestSubscription_ToFrom(t *testing.T) {
	t.Parallel()

	in := sample()
	got, err := FromProtoSubscription(ToProtoSubscription(in))
	if err != nil {
		t.Fatalf("FromProtoSubscription: %v", err)
	}
	if got.ID != in.ID || got.Name != in.Name || !got.Price.Equal(in.Price) || got.RenewalDate != in.RenewalDate {
		t.Fatalf("mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) || len(got.ReminderDays) != 2 || got.ReminderDays[1] != 1 {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestSubscription_ZeroIDOmitted_BadFields(t *testing.T) {
	t.Parallel()

	in := sample()
	in.ID = model.SubscriptionID{}
	in.Category = ""
	s := ToProtoSubscription(in)
	if _, ok := s.Fields["id"]; ok {
		t.Fatalf("zero id must be omitted")
	}
	got, err := FromProtoSubscription(s)
	if err != nil || !got.ID.IsZero() || got.Category != model.CategoryOther {
		t.Fatalf("got %+v err=%v", got, err)
	}

	for key, bad := range map[string]string{"price": "abc", "renewal_date": "06/03/2025", "created_at": "yesterday", "id": "nope"} {
		s := ToProtoSubscription(sample())
		s.Fields[key] = structpb.NewStringValue(bad)
		if _, err := FromProtoSubscription(s); err == nil {
			t.Fatalf("want error for bad %s", key)
		}
	}
	if _, err := FromProtoSubscription(nil); err == nil {
		t.Fatalf("want error for nil")
	}
}

func TestPatch_OnlySetFields(t *testing.T) {
	t.Parallel()

	name := "Max"
	price := decimal.RequireFromString("20")
	off := false
	p := model.SubscriptionPatch{Name: &name, Price: &price, IsActive: &off}
	s := ToProtoPatch(p)
	if len(s.Fields) != 3 {
		t.Fatalf("want 3 fields, got %v", s.Fields)
	}
	got, err := FromProtoPatch(s)
	if err != nil {
		t.Fatalf("FromProtoPatch: %v", err)
	}
	if *got.Name != "Max" || !got.Price.Equal(price) || *got.IsActive || got.Notes != nil || got.RenewalDate != nil {
		t.Fatalf("bad patch: %+v", got)
	}

	s.Fields["price"] = structpb.NewStringValue("x")
	if _, err := FromProtoPatch(s); err == nil {
		t.Fatalf("want price error")
	}
}

func TestAuthResponse(t *testing.T) {
	t.Parallel()

	usr := model.User{ID: u.Must(u.NewV4()), Email: "a@b.io", CreatedAt: time.Unix(100, 0).UTC()}
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	gotU, sess, err := FromAuthResponse(AuthResponse(usr, model.Tokens{AccessToken: "t", ExpiresAt: exp}))
	if err != nil || sess == nil {
		t.Fatalf("FromAuthResponse: %v %v", sess, err)
	}
	if gotU.ID != usr.ID || sess.AccessToken != "t" || !sess.ExpiresAt.Equal(exp) || sess.User.Email != "a@b.io" {
		t.Fatalf("mismatch: %+v %+v", gotU, sess)
	}

	_, sess, err = FromAuthResponse(AuthResponse(usr, model.Tokens{}))
	if err != nil || sess != nil {
		t.Fatalf("no token must give nil session: %v %v", sess, err)
	}

	if _, _, err := FromAuthResponse(&structpb.Struct{}); err == nil {
		t.Fatalf("want missing user error")
	}
}

func TestRequests(t *testing.T) {
	t.Parallel()

	sub := sample()
	uid := u.Must(u.FromString(sub.UserID))

	gotUID, gotSub, err := FromInsertRequest(InsertRequest(sub.UserID, sub))
	if err != nil || gotUID != uid || !gotSub.ID.IsZero() || gotSub.Name != sub.Name {
		t.Fatalf("insert: %v %+v %v", gotUID, gotSub, err)
	}

	name := "n"
	rowID, p, err := FromUpdateRequest(UpdateRequest(sub.ID, model.SubscriptionPatch{Name: &name}))
	want, _ := sub.ID.UUID()
	if err != nil || rowID != want || *p.Name != "n" {
		t.Fatalf("update: %v %+v %v", rowID, p, err)
	}

	if _, err := FromIDRequest(IDRequest(model.DemoID("1"))); err == nil {
		t.Fatalf("demo id must be rejected")
	}
	if got, err := FromUserIDRequest(UserIDRequest(sub.UserID)); err != nil || got != uid {
		t.Fatalf("user id: %v %v", got, err)
	}

	list, err := FromSubscriptionsResponse(SubscriptionsResponse([]model.Subscription{sub, sub}))
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	empty, err := FromSubscriptionsResponse(&structpb.Struct{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty list: %v %v", empty, err)
	}
	one, err := FromSubscriptionResponse(SubscriptionResponse(sub))
	if err != nil || one.ID != sub.ID {
		t.Fatalf("one: %v %v", one, err)
	}

	c := FromCredentialsRequest(CredentialsRequest(model.Credentials{Email: "e", Password: "p"}))
	if c.Email != "e" || c.Password != "p" {
		t.Fatalf("creds: %+v", c)
	}
	gotUser, err := FromUserResponse(UserResponse(model.User{ID: uid, Email: "e"}))
	if err != nil || gotUser.ID != uid {
		t.Fatalf("user: %v %v", gotUser, err)
	}
}
