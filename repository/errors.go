package repository

import (
	"errors"
	"fmt"

	"goldenticket/service"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var constraintErrors = map[string]error{
	"tickets_payment_tx_id_key":         service.ErrPaymentTxConflict,
	"tickets_unique_user_id_period_key": service.ErrUserPeriodConflict,
	"processed_payments_pkey":           service.ErrPaymentTxConflict,
	"draw_results_period_key":           service.ErrDrawResultConflict,
}

// mapConstraintError translates unique violations on known constraints into service
// sentinels. Anything else is returned as is.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
	}
	return err
}
