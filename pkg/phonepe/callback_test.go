package phonepe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
)

func TestCallbackRoundTripAndChecksum(t *testing.T) {
	cb := Callback{Success: true, Code: "PAYMENT_SUCCESS", Data: CallbackData{MerchantTransactionID: "TXN_1_abc123", Amount: 10000, State: "COMPLETED"}}
	response, err := EncodeCallback(cb)
	require.NoError(t, err)

	header := Checksum(response, "salt", "1")
	require.NoError(t, VerifyChecksum(response, header, "salt", "1"))

	err = VerifyChecksum(response, header, "other-salt", "1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	err = VerifyChecksum(response, "", "salt", "1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	decoded, err := DecodeCallback(response)
	require.NoError(t, err)
	assert.Equal(t, cb, decoded)
	status, ok := decoded.Status()
	assert.True(t, ok)
	assert.Equal(t, enums.GatewayStatusSuccess, status)
}

func TestCallbackStatusMapping(t *testing.T) {
	tests := map[string]struct {
		status enums.GatewayStatus
		final  bool
	}{
		"PAYMENT_SUCCESS":  {enums.GatewayStatusSuccess, true},
		"PAYMENT_ERROR":    {enums.GatewayStatusFailed, true},
		"PAYMENT_DECLINED": {enums.GatewayStatusFailed, true},
		"PAYMENT_PENDING":  {enums.GatewayStatusPending, false},
		"":                 {enums.GatewayStatusPending, false},
	}
	for code, want := range tests {
		status, ok := Callback{Code: code}.Status()
		assert.Equal(t, want.status, status, code)
		assert.Equal(t, want.final, ok, code)
	}
}

func TestDecodeCallbackRejectsGarbage(t *testing.T) {
	_, err := DecodeCallback("%%%")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	response, err := EncodeCallback(Callback{Code: "PAYMENT_SUCCESS"})
	require.NoError(t, err)
	_, err = DecodeCallback(response)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
