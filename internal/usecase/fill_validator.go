package usecase

import (
	"context"
	"fmt"
	"math"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// FillConfig holds the fill-versus-order tolerance bounds.
type FillConfig struct {
	PriceTolerancePct    float64
	QuantityTolerancePct float64
}

// FillValidator is the ghost-position guard: a position is only recorded after
// the broker-reported fill matches what was ordered within tolerance and the
// broker can confirm the fill exists on re-query. Anything else is treated as
// a failed trade even if the broker thinks it succeeded.
type FillValidator struct {
	cfg FillConfig
}

func NewFillValidator(cfg FillConfig) *FillValidator {
	return &FillValidator{cfg: cfg}
}

// Validate compares the broker fill against the submitted order and confirms
// it by re-querying the broker. refPrice is the expected execution price
// (limit price, or the signal entry price for market orders).
func (v *FillValidator) Validate(
	ctx context.Context,
	req *models.OrderRequest,
	res *models.OrderResult,
	refPrice float64,
	broker domrepo.BrokerAdapter,
) models.FillValidation {
	switch res.Status {
	case models.OrderStatusFilled, models.OrderStatusPartial:
	default:
		return fillFail(fmt.Sprintf("order %s has non-fill status %q", res.OrderID, res.Status))
	}

	if res.FillQuantity <= 0 {
		return fillFail(fmt.Sprintf("order %s reports zero fill quantity", res.OrderID))
	}
	if qtyDev := pctDeviation(res.FillQuantity, req.Quantity); qtyDev > v.cfg.QuantityTolerancePct {
		return fillFail(fmt.Sprintf("order %s filled %.2f of %.2f requested, deviation %.2f%% exceeds %.2f%%",
			res.OrderID, res.FillQuantity, req.Quantity, qtyDev, v.cfg.QuantityTolerancePct))
	}

	if res.FillPrice <= 0 {
		return fillFail(fmt.Sprintf("order %s reports non-positive fill price %.4f", res.OrderID, res.FillPrice))
	}
	if refPrice > 0 {
		if priceDev := pctDeviation(res.FillPrice, refPrice); priceDev > v.cfg.PriceTolerancePct {
			return fillFail(fmt.Sprintf("order %s filled at %.4f vs expected %.4f, deviation %.2f%% exceeds %.2f%%",
				res.OrderID, res.FillPrice, refPrice, priceDev, v.cfg.PriceTolerancePct))
		}
	}

	if broker != nil {
		confirmed, err := broker.GetFill(ctx, res.OrderID)
		if err != nil {
			return fillFail(fmt.Sprintf("order %s cannot be confirmed with %s: %v", res.OrderID, res.Broker, err))
		}
		if confirmed == nil || confirmed.FillQuantity != res.FillQuantity || confirmed.FillPrice != res.FillPrice {
			return fillFail(fmt.Sprintf("order %s confirmation mismatch with %s", res.OrderID, res.Broker))
		}
	}

	return models.FillValidation{OK: true}
}

func pctDeviation(actual, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return math.Abs(actual-expected) / math.Abs(expected) * 100
}

func fillFail(msg string) models.FillValidation {
	return models.FillValidation{OK: false, Message: msg}
}
