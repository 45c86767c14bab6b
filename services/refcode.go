// services/refcode.go
//
// Reconciliation reference codes. A code is the only link between a bank
// statement line and a request, because there is no payment-gateway webhook:
// the member puts the code in the UPI transaction note and the treasurer
// matches on exact note bytes. Codes are short enough for a payment app's
// note field and fully parseable without a lookup:
//
//	AT-FUND{kind2}-{owner6}-{YYYYMMDDHHmmss}
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
)

const (
	refPrefix     = "AT-FUND"
	refTimeLayout = "20060102150405"

	// How many one-second timestamp bumps Generate attempts before giving up.
	maxRefRetries = 5

	refLockTTL      = 5 * time.Second
	refLockAttempts = 50
	refLockBackoff  = 20 * time.Millisecond

	// How long a freshly issued code stays reserved in Redis. It only needs
	// to cover the gap between Generate and the insert that lands on the
	// unique referenceCode index.
	refReserveTTL = 2 * time.Minute
)

var kindCodes = map[models.RequestKind]string{
	models.KindFundPayment:     "01",
	models.KindReimbursement:   "02",
	models.KindCredentialReset: "03",
}

var kindsByCode = map[string]models.RequestKind{
	"01": models.KindFundPayment,
	"02": models.KindReimbursement,
	"03": models.KindCredentialReset,
}

var refPattern = regexp.MustCompile(`^AT-FUND(\d{2})-([A-Z0-9]{6})-(\d{14})$`)

// ReferenceParts are the components recoverable from a valid code.
type ReferenceParts struct {
	Kind       models.RequestKind
	OwnerShort string
	IssuedAt   time.Time
}

// ReferenceIndex answers whether a code is already assigned. Backed by the
// unique index on fund_payments.referenceCode.
type ReferenceIndex interface {
	ReferenceExists(ctx context.Context, code string) (bool, error)
}

// ReferenceCodeGenerator issues globally unique codes. Generation for the same
// (owner, kind) is serialized: through a Redis lease when Redis is up, through
// an in-process mutex otherwise. This is the only cross-call lock in the core.
type ReferenceCodeGenerator struct {
	index ReferenceIndex
	redis *redis.Client

	mu     sync.Mutex
	locals map[string]*sync.Mutex
	issued map[string]time.Time

	now func() time.Time
}

func NewReferenceCodeGenerator(index ReferenceIndex, redisClient *redis.Client) *ReferenceCodeGenerator {
	return &ReferenceCodeGenerator{
		index:  index,
		redis:  redisClient,
		locals: make(map[string]*sync.Mutex),
		issued: make(map[string]time.Time),
		now:    time.Now,
	}
}

// OwnerShort is the 6-character uppercase slice of an owner id embedded in the
// code. It identifies the owner for reconciliation, not for authorization.
func OwnerShort(ownerID primitive.ObjectID) string {
	return strings.ToUpper(ownerID.Hex()[:6])
}

// FormatReference renders a code for the given components at UTC second
// granularity.
func FormatReference(kind models.RequestKind, ownerShort string, at time.Time) string {
	return fmt.Sprintf("%s%s-%s-%s", refPrefix, kindCodes[kind], ownerShort, at.UTC().Format(refTimeLayout))
}

// Generate issues a unique code for (owner, kind). On a collision the
// timestamp is bumped one second forward, bounded by maxRefRetries, after
// which ErrReferenceExhausted is returned.
//
// The code is reserved before the lock is released: the generator remembers
// the last second it handed out per (kind, owner) and, when Redis is up, also
// claims the code with a SETNX lease. Without this a second call in the same
// second would pass the existence check and receive the identical code, since
// the caller's insert has not happened yet.
func (g *ReferenceCodeGenerator) Generate(ctx context.Context, kind models.RequestKind, ownerID primitive.ObjectID) (string, error) {
	if _, ok := kindCodes[kind]; !ok {
		return "", validationErrf("unknown request kind %q", kind)
	}
	ownerShort := OwnerShort(ownerID)
	key := kindCodes[kind] + ":" + ownerShort

	unlock, err := g.lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer unlock()

	base := g.now().UTC().Truncate(time.Second)
	if last, ok := g.lastIssued(key); ok && !base.After(last) {
		base = last.Add(time.Second)
	}
	for i := 0; i < maxRefRetries; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		code := FormatReference(kind, ownerShort, at)
		exists, err := g.index.ReferenceExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists || !g.reserve(ctx, code) {
			continue
		}
		g.markIssued(key, at)
		return code, nil
	}
	return "", ErrReferenceExhausted
}

func (g *ReferenceCodeGenerator) lastIssued(key string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.issued[key]
	return at, ok
}

func (g *ReferenceCodeGenerator) markIssued(key string, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued[key] = at
}

// reserve claims a candidate code across instances. A Redis failure falls
// back to the in-process issued map, which already covers the single-instance
// deployment.
func (g *ReferenceCodeGenerator) reserve(ctx context.Context, code string) bool {
	if g.redis == nil {
		return true
	}
	ok, err := g.redis.SetNX(ctx, "treasury:refissued:"+code, "1", refReserveTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// Parse validates the fixed grammar and extracts the components. Any deviation
// yields ErrMalformedReference. A code is never an authorization token, only a
// reconciliation aid.
func (g *ReferenceCodeGenerator) Parse(code string) (*ReferenceParts, error) {
	return ParseReference(code)
}

func ParseReference(code string) (*ReferenceParts, error) {
	m := refPattern.FindStringSubmatch(code)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedReference, code)
	}
	kind, ok := kindsByCode[m[1]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind code %q", ErrMalformedReference, m[1])
	}
	issuedAt, err := time.ParseInLocation(refTimeLayout, m[3], time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrMalformedReference, m[3])
	}
	return &ReferenceParts{Kind: kind, OwnerShort: m[2], IssuedAt: issuedAt}, nil
}

// BuildUPILink constructs the upi://pay deep link payment apps consume. The
// reference goes verbatim into the transaction-note field (only URL-encoded,
// case preserved) because the treasurer matches on exact note bytes.
func BuildUPILink(payeeUPI, payeeName string, amount float64, reference string) string {
	v := url.Values{}
	v.Set("pa", payeeUPI)
	v.Set("pn", payeeName)
	v.Set("am", fmt.Sprintf("%.2f", amount))
	v.Set("cu", "INR")
	v.Set("tn", reference)
	return "upi://pay?" + v.Encode()
}

// QRCodePNGBase64 renders content as a 300x300 PNG QR, base64 encoded for
// embedding in API responses.
func QRCodePNGBase64(content string) (string, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, 300, 300)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// lock serializes generation per (kind, owner). The Redis path takes a SETNX
// lease with a TTL so a crashed holder cannot wedge generation; without Redis
// a per-key process mutex covers the single-instance deployment.
func (g *ReferenceCodeGenerator) lock(ctx context.Context, key string) (func(), error) {
	if g.redis == nil {
		mu := g.localMutex(key)
		mu.Lock()
		return mu.Unlock, nil
	}

	redisKey := "treasury:reflock:" + key
	for i := 0; i < refLockAttempts; i++ {
		ok, err := g.redis.SetNX(ctx, redisKey, "1", refLockTTL).Result()
		if err != nil {
			// Redis degraded mid-flight; fall back to the process mutex.
			mu := g.localMutex(key)
			mu.Lock()
			return mu.Unlock, nil
		}
		if ok {
			return func() { g.redis.Del(context.Background(), redisKey) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(refLockBackoff):
		}
	}
	return nil, ErrReferenceExhausted
}

func (g *ReferenceCodeGenerator) localMutex(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	mu, ok := g.locals[key]
	if !ok {
		mu = &sync.Mutex{}
		g.locals[key] = mu
	}
	return mu
}
