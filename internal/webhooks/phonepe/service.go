package phonepewebhook

import (
	"context"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
)

// Consumer names the idempotency scope for gateway callbacks.
const Consumer = "phonepe-webhook"

type callbackSink interface {
	HandleCallback(ctx context.Context, transactionID string, status enums.GatewayStatus) error
}

type ServiceParams struct {
	Payments  callbackSink
	Guard     *idempotency.Manager
	SaltKey   string
	SaltIndex string
	Logger    *logger.Logger
}

type Service struct {
	payments  callbackSink
	guard     *idempotency.Manager
	saltKey   string
	saltIndex string
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.SaltKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "phonepe salt key required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments:  params.Payments,
		guard:     params.Guard,
		saltKey:   params.SaltKey,
		saltIndex: params.SaltIndex,
		logg:      params.Logger,
	}, nil
}

// HandleCallback verifies and applies one gateway callback. Replays of the same
// transaction outcome are acknowledged without being applied again.
func (s *Service) HandleCallback(ctx context.Context, envelope phonepe.CallbackEnvelope, checksum string) error {
	if err := phonepe.VerifyChecksum(envelope.Response, checksum, s.saltKey, s.saltIndex); err != nil {
		return err
	}
	cb, err := phonepe.DecodeCallback(envelope.Response)
	if err != nil {
		return err
	}
	txnID := cb.Data.MerchantTransactionID
	ctx = s.logg.WithTransactionID(ctx, txnID)

	status, final := cb.Status()
	if !final {
		s.logg.Info(s.logg.WithField(ctx, "code", cb.Code), "ignoring non-final gateway callback")
		return nil
	}

	deliveryID := txnID + ":" + string(status)
	seen, err := s.guard.CheckAndMarkProcessed(ctx, Consumer, deliveryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if seen {
		s.logg.Info(ctx, "duplicate gateway callback skipped")
		return nil
	}

	if err := s.payments.HandleCallback(ctx, txnID, status); err != nil {
		if delErr := s.guard.Delete(ctx, Consumer, deliveryID); delErr != nil {
			s.logg.Error(ctx, "failed to release callback idempotency key", delErr)
		}
		return err
	}
	return nil
}
