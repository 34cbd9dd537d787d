package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
)

// ChecksumHeader carries the callback checksum.
const ChecksumHeader = "X-VERIFY"

// CallbackEnvelope is the server-to-server callback body.
type CallbackEnvelope struct {
	Response string `json:"response"`
}

// Callback is the decoded response field.
type Callback struct {
	Success bool         `json:"success"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Data    CallbackData `json:"data"`
}

type CallbackData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
}

// Checksum returns the X-VERIFY value for a base64 response.
func Checksum(response, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(response + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// VerifyChecksum compares header against the expected checksum in constant time.
func VerifyChecksum(response, header, saltKey, saltIndex string) error {
	if strings.TrimSpace(header) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "callback checksum missing")
	}
	expected := Checksum(response, saltKey, saltIndex)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(header))) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "callback checksum mismatch")
	}
	return nil
}

// EncodeCallback renders cb the way the gateway sends it.
func EncodeCallback(cb Callback) (string, error) {
	raw, err := json.Marshal(cb)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeCallback(response string) (Callback, error) {
	raw, err := base64.StdEncoding.DecodeString(response)
	if err != nil {
		return Callback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "callback response is not base64")
	}
	var cb Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return Callback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "callback response is not json")
	}
	if strings.TrimSpace(cb.Data.MerchantTransactionID) == "" {
		return Callback{}, pkgerrors.New(pkgerrors.CodeValidation, "callback transaction id missing")
	}
	return cb, nil
}

// Status maps the callback code to a gateway status. ok is false for codes
// that leave the transaction pending.
func (c Callback) Status() (enums.GatewayStatus, bool) {
	switch strings.ToUpper(c.Code) {
	case "PAYMENT_SUCCESS":
		return enums.GatewayStatusSuccess, true
	case "PAYMENT_ERROR", "PAYMENT_DECLINED", "TIMED_OUT", "TRANSACTION_NOT_FOUND":
		return enums.GatewayStatusFailed, true
	default:
		return enums.GatewayStatusPending, false
	}
}
