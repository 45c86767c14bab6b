// services/refcode_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
)

func TestFormatAndParseReference(t *testing.T) {
	owner := primitive.NewObjectID()
	issued := time.Date(2026, 1, 15, 9, 30, 45, 0, time.UTC)

	code := FormatReference(models.KindFundPayment, OwnerShort(owner), issued)
	if !strings.HasPrefix(code, "AT-FUND01-") {
		t.Fatalf("unexpected code prefix: %s", code)
	}

	parts, err := ParseReference(code)
	if err != nil {
		t.Fatalf("ParseReference(%s): %v", code, err)
	}
	if parts.Kind != models.KindFundPayment {
		t.Errorf("kind = %s, want %s", parts.Kind, models.KindFundPayment)
	}
	if parts.OwnerShort != OwnerShort(owner) {
		t.Errorf("ownerShort = %s, want %s", parts.OwnerShort, OwnerShort(owner))
	}
	if !parts.IssuedAt.Equal(issued) {
		t.Errorf("issuedAt = %v, want %v", parts.IssuedAt, issued)
	}
}

func TestParseReferenceRejectsMalformed(t *testing.T) {
	owner := primitive.NewObjectID()
	valid := FormatReference(models.KindReimbursement, OwnerShort(owner), time.Now().UTC())

	bad := []string{
		"",
		"AT-FUND",
		strings.ToLower(valid),
		valid + "X",
		" " + valid,
		strings.Replace(valid, "AT-FUND02", "AT-FUND99", 1),
		strings.Replace(valid, "-", "_", 1),
		"AT-FUND01-ABC123-2026011",
	}
	for _, code := range bad {
		if _, err := ParseReference(code); !errors.Is(err, ErrMalformedReference) {
			t.Errorf("ParseReference(%q) = %v, want ErrMalformedReference", code, err)
		}
	}
}

// memoryReferenceIndex is a bare code set. The payment store fake scans all
// documents per lookup, which is too slow for the bulk test below.
type memoryReferenceIndex struct {
	codes map[string]bool
}

func (m *memoryReferenceIndex) ReferenceExists(ctx context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

func TestGenerateBulkUniqueness(t *testing.T) {
	index := &memoryReferenceIndex{codes: map[string]bool{}}
	gen := NewReferenceCodeGenerator(index, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	kinds := []models.RequestKind{models.KindFundPayment, models.KindReimbursement, models.KindCredentialReset}

	// Object ids minted in the same second share their leading hex, so the
	// distinct owners need explicit ids here.
	seen := map[string]bool{}
	for i := 0; i < 10000; i++ {
		owner, err := primitive.ObjectIDFromHex(fmt.Sprintf("%06x000000000000000000", i))
		if err != nil {
			t.Fatalf("owner id: %v", err)
		}
		code, err := gen.Generate(context.Background(), kinds[i%len(kinds)], owner)
		if err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
		if seen[code] {
			t.Fatalf("duplicate code issued: %s", code)
		}
		seen[code] = true
		index.codes[code] = true
	}
}

func TestGenerateNeverRepeatsWithinSecond(t *testing.T) {
	store := newFakePaymentStore()
	gen := NewReferenceCodeGenerator(store, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	// No insert between the calls: the generator alone must keep the second
	// call off the first call's code.
	owner := primitive.NewObjectID()
	first, err := gen.Generate(context.Background(), models.KindFundPayment, owner)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), models.KindFundPayment, owner)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if first == second {
		t.Fatalf("same code issued twice in one second: %s", first)
	}

	fp, err := ParseReference(first)
	if err != nil {
		t.Fatalf("ParseReference(%s): %v", first, err)
	}
	sp, err := ParseReference(second)
	if err != nil {
		t.Fatalf("ParseReference(%s): %v", second, err)
	}
	if got := sp.IssuedAt.Sub(fp.IssuedAt); got != time.Second {
		t.Errorf("second code issued %v after the first, want exactly 1s", got)
	}
}

func TestGenerateBumpsTimestampOnCollision(t *testing.T) {
	store := newFakePaymentStore()
	gen := NewReferenceCodeGenerator(store, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	owner := primitive.NewObjectID()
	taken := FormatReference(models.KindFundPayment, OwnerShort(owner), fixed)
	store.Insert(context.Background(), &models.FundPaymentRequest{
		RequesterID:   owner,
		Period:        "February 2026",
		ReferenceCode: taken,
		Status:        models.StatusPaid,
	})

	code, err := gen.Generate(context.Background(), models.KindFundPayment, owner)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := FormatReference(models.KindFundPayment, OwnerShort(owner), fixed.Add(time.Second))
	if code != want {
		t.Errorf("code = %s, want %s (one-second bump)", code, want)
	}
}

func TestGenerateExhaustsAfterBoundedRetries(t *testing.T) {
	store := newFakePaymentStore()
	gen := NewReferenceCodeGenerator(store, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	owner := primitive.NewObjectID()
	for i := 0; i < maxRefRetries; i++ {
		code := FormatReference(models.KindFundPayment, OwnerShort(owner), fixed.Add(time.Duration(i)*time.Second))
		store.Insert(context.Background(), &models.FundPaymentRequest{
			RequesterID:   primitive.NewObjectID(),
			Period:        "slot",
			ReferenceCode: code,
			Status:        models.StatusPaid,
		})
	}

	if _, err := gen.Generate(context.Background(), models.KindFundPayment, owner); !errors.Is(err, ErrReferenceExhausted) {
		t.Fatalf("Generate = %v, want ErrReferenceExhausted", err)
	}
}

func TestBuildUPILink(t *testing.T) {
	link := BuildUPILink("treasury@upi", "Avishkar Treasury", 500, "AT-FUND01-ABC123-20260115093045")
	if !strings.HasPrefix(link, "upi://pay?") {
		t.Fatalf("unexpected scheme: %s", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	q := u.Query()
	if q.Get("pa") != "treasury@upi" {
		t.Errorf("pa = %s", q.Get("pa"))
	}
	if q.Get("am") != "500.00" {
		t.Errorf("am = %s, want 500.00", q.Get("am"))
	}
	if q.Get("cu") != "INR" {
		t.Errorf("cu = %s, want INR", q.Get("cu"))
	}
	if q.Get("tn") != "AT-FUND01-ABC123-20260115093045" {
		t.Errorf("tn = %s, reference must survive encoding verbatim", q.Get("tn"))
	}
}

func TestQRCodePNGBase64(t *testing.T) {
	b64, err := QRCodePNGBase64("upi://pay?pa=treasury@upi&am=500.00")
	if err != nil {
		t.Fatalf("QRCodePNGBase64: %v", err)
	}
	if b64 == "" {
		t.Fatal("empty QR payload")
	}
}

func TestMaskReference(t *testing.T) {
	owner := primitive.NewObjectID()
	code := FormatReference(models.KindFundPayment, OwnerShort(owner), time.Now().UTC())

	masked := MaskReference(code)
	if masked == code {
		t.Fatalf("mask left code unchanged: %s", masked)
	}
	if !strings.HasSuffix(masked, strings.Repeat("X", 14)) {
		t.Errorf("masked tail = %s, want 14 X's", masked)
	}
	if !strings.HasPrefix(masked, "AT-FUND01-"+OwnerShort(owner)+"-") {
		t.Errorf("mask must preserve the fixed prefix: %s", masked)
	}

	if got := MaskReference("not-a-reference"); got != "not-a-reference" {
		t.Errorf("unparseable input must pass through, got %s", got)
	}
}
