package payments

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
)

// Three identifier spaces meet here: legacy hyphenated UUIDs stored by the
// old checkout flow, PortOne V2 "pay_" ids, and Inicis "MOI" TIDs. The
// converters below never invent an id that could collide with a different
// real transaction: every transform is deterministic on its input.

const v2IDLength = 26 // "pay_" + 22

var (
	v2IDPattern       = regexp.MustCompile(`^pay_[A-Za-z0-9]{22}$`)
	legacyUUIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	nonAlnumPattern   = regexp.MustCompile(`[^A-Za-z0-9]`)
	inicisTIDPattern  = regexp.MustCompile(`MOI\d+`)
)

// IsValidPortoneV2ID reports whether id is already in PortOne V2 canonical
// form: "pay_" followed by exactly 22 alphanumerics. Legacy UUIDs are not
// valid V2 ids; they need conversion first.
func IsValidPortoneV2ID(id string) bool {
	if legacyUUIDPattern.MatchString(id) {
		slog.Debug("legacy uuid classified as non-v2 payment id, conversion required", "id", id)
		return false
	}
	return len(id) == v2IDLength && v2IDPattern.MatchString(id)
}

// ConvertToV2PaymentID coerces any identifier into the strict pay_+22 form.
// Pure and idempotent: converting its own output returns the same value.
func ConvertToV2PaymentID(id string) string {
	if strings.HasPrefix(id, "pay_") {
		return "pay_" + padTo22(id[len("pay_"):])
	}
	if legacyUUIDPattern.MatchString(id) {
		hex := strings.ReplaceAll(id, "-", "")
		return "pay_" + hex[:22]
	}
	return "pay_" + padTo22(nonAlnumPattern.ReplaceAllString(id, ""))
}

func padTo22(s string) string {
	if len(s) >= 22 {
		return s[:22]
	}
	return s + strings.Repeat("f", 22-len(s))
}

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePortonePaymentID mints a fresh V2-shaped id. Local minting only
// (prepare flow, tests): a provider-issued id must never be regenerated.
func GeneratePortonePaymentID() string {
	b := make([]byte, 22)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alnum))))
		if err != nil {
			b[i] = 'f'
			continue
		}
		b[i] = alnum[n.Int64()]
	}
	return "pay_" + string(b)
}

// ExtractInicisTID pulls the MOI token out of a raw TID or a receipt URL.
// Returns ("", false) when absent; never errors.
func ExtractInicisTID(raw string) (string, bool) {
	m := inicisTIDPattern.FindString(raw)
	if m == "" {
		return "", false
	}
	return m, true
}

const inicisCancelTIDLength = 40

// FormatTIDForCancel builds the fixed 40-character cancellation TID
// Inicis expects: "INIpayTest_" + MOI padded to 14 + "_" + 14-digit
// timestamp (YYYYMMDDHHmmss). Inicis rejects malformed TIDs silently,
// so the length invariant is checked here rather than discovered in
// a provider error that never comes.
func FormatTIDForCancel(moi, timestamp string) string {
	paddedMOI := moi
	if len(paddedMOI) > 14 {
		paddedMOI = paddedMOI[:14]
	} else if len(paddedMOI) < 14 {
		paddedMOI = paddedMOI + strings.Repeat("0", 14-len(paddedMOI))
	}

	paddedTS := timestamp
	if len(paddedTS) > 14 {
		paddedTS = paddedTS[:14]
	} else if len(paddedTS) < 14 {
		paddedTS = strings.Repeat("0", 14-len(paddedTS)) + paddedTS
	}

	tid := "INIpayTest_" + paddedMOI + "_" + paddedTS
	if len(tid) != inicisCancelTIDLength {
		slog.Error("inicis cancel tid length invariant broken", "tid", tid, "len", len(tid))
	}
	return tid
}
