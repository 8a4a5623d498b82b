package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPortoneV2ID(t *testing.T) {
	valid := []string{
		"pay_abcdefghijklmnopqrstuv",
		"pay_0123456789ABCDEFGHIJ12",
	}
	for _, id := range valid {
		assert.True(t, IsValidPortoneV2ID(id), id)
	}

	invalid := []string{
		"",
		"pay_short",
		"pay_abcdefghijklmnopqrstuvw",  // 23 chars after prefix
		"pay_abcdefghijklmnopqr-tuv",   // non-alnum
		"abcdefghijklmnopqrstuvwxyz",   // right length, no prefix
		"550e8400-e29b-41d4-a716-446655440000", // legacy uuid
	}
	for _, id := range invalid {
		assert.False(t, IsValidPortoneV2ID(id), id)
	}
}

func TestConvertToV2PaymentID_Idempotent(t *testing.T) {
	inputs := []string{
		"pay_abcdefghijklmnopqrstuv",
		"pay_short",
		"550e8400-e29b-41d4-a716-446655440000",
		"order-1234",
		"",
		"x",
		strings.Repeat("z", 50),
	}
	for _, in := range inputs {
		once := ConvertToV2PaymentID(in)
		twice := ConvertToV2PaymentID(once)
		require.Equal(t, once, twice, "input %q", in)
		assert.True(t, IsValidPortoneV2ID(once), "converted %q -> %q", in, once)
	}
}

func TestConvertToV2PaymentID_ValidIDIsFixpoint(t *testing.T) {
	id := "pay_abcdefghijklmnopqrstuv"
	assert.Equal(t, id, ConvertToV2PaymentID(id))
}

func TestConvertToV2PaymentID_LegacyUUID(t *testing.T) {
	got := ConvertToV2PaymentID("550e8400-e29b-41d4-a716-446655440000")
	// hyphens stripped, first 22 hex digits
	assert.Equal(t, "pay_550e8400e29b41d4a71644", got)

	// deterministic: same uuid always maps to the same id
	again := ConvertToV2PaymentID("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, got, again)
}

func TestConvertToV2PaymentID_ShortInputPadded(t *testing.T) {
	got := ConvertToV2PaymentID("ord-42")
	require.Len(t, got, 26)
	assert.Equal(t, "pay_ord42", got[:len("pay_ord42")])
	assert.True(t, strings.HasSuffix(got, strings.Repeat("f", 22-len("ord42"))))
}

func TestGeneratePortonePaymentID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GeneratePortonePaymentID()
		require.True(t, IsValidPortoneV2ID(id), id)
		require.False(t, seen[id], "duplicate generated id %s", id)
		seen[id] = true
	}
}

func TestExtractInicisTID(t *testing.T) {
	tid, ok := ExtractInicisTID("MOI1234567890")
	require.True(t, ok)
	assert.Equal(t, "MOI1234567890", tid)

	tid, ok = ExtractInicisTID("https://iniweb.inicis.com/receipt?tid=MOI9876&foo=bar")
	require.True(t, ok)
	assert.Equal(t, "MOI9876", tid)

	_, ok = ExtractInicisTID("pay_abcdefghijklmnopqrstuv")
	assert.False(t, ok)

	_, ok = ExtractInicisTID("")
	assert.False(t, ok)
}

func TestFormatTIDForCancel_AlwaysFortyChars(t *testing.T) {
	cases := []struct{ moi, ts string }{
		{"MOI1234", "20250101120000"},
		{"MOI12345678901", "20250101120000"},            // exactly 14
		{"MOI1234567890123456", "20250101120000"},       // longer than 14
		{"MOI1", "999"},                                 // short timestamp
		{"MOI1234", "202501011200001234"},               // long timestamp
	}
	for _, c := range cases {
		tid := FormatTIDForCancel(c.moi, c.ts)
		require.Len(t, tid, 40, "moi=%q ts=%q -> %q", c.moi, c.ts, tid)
		assert.True(t, strings.HasPrefix(tid, "INIpayTest_"))
	}
}

func TestFormatTIDForCancel_Padding(t *testing.T) {
	tid := FormatTIDForCancel("MOI1234", "20250101120000")
	// MOI right-padded with zeros, timestamp as-is
	assert.Equal(t, "INIpayTest_MOI12340000000_20250101120000", tid)

	tid = FormatTIDForCancel("MOI12345678901", "99")
	// timestamp left-padded with zeros
	assert.Equal(t, "INIpayTest_MOI12345678901_00000000000099", tid)
}
