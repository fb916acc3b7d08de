package usecase

import (
	"context"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
)

func fillCfg() FillConfig {
	return FillConfig{PriceTolerancePct: 2, QuantityTolerancePct: 5}
}

func filledResult(qty, price float64) *models.OrderResult {
	return &models.OrderResult{
		OrderID:      "ord-1",
		Broker:       "paper",
		Status:       models.OrderStatusFilled,
		FillPrice:    price,
		FillQuantity: qty,
		SubmittedAt:  time.Now(),
	}
}

func TestValidateAcceptsMatchingFill(t *testing.T) {
	v := NewFillValidator(fillCfg())
	req := testOrder()
	res := filledResult(10, 100.5) // 0.5% off a 100 reference

	fv := v.Validate(context.Background(), req, res, 100, nil)
	if !fv.OK {
		t.Fatalf("matching fill rejected: %s", fv.Message)
	}
}

func TestValidateRejectsNonFillStatus(t *testing.T) {
	v := NewFillValidator(fillCfg())
	res := filledResult(10, 100)
	res.Status = models.OrderStatusPending

	if fv := v.Validate(context.Background(), testOrder(), res, 100, nil); fv.OK {
		t.Fatalf("pending order must not validate")
	}
}

func TestValidateRejectsZeroQuantity(t *testing.T) {
	v := NewFillValidator(fillCfg())
	res := filledResult(0, 100)

	if fv := v.Validate(context.Background(), testOrder(), res, 100, nil); fv.OK {
		t.Fatalf("zero fill quantity must not validate")
	}
}

func TestValidateQuantityTolerance(t *testing.T) {
	v := NewFillValidator(fillCfg())

	// 9.6 of 10 requested is a 4% shortfall, inside the 5% tolerance.
	res := filledResult(9.6, 100)
	if fv := v.Validate(context.Background(), testOrder(), res, 100, nil); !fv.OK {
		t.Fatalf("4%% quantity deviation must pass: %s", fv.Message)
	}

	res = filledResult(9, 100) // 10% shortfall
	if fv := v.Validate(context.Background(), testOrder(), res, 100, nil); fv.OK {
		t.Fatalf("10%% quantity deviation must fail")
	}
}

func TestValidatePriceTolerance(t *testing.T) {
	v := NewFillValidator(fillCfg())

	res := filledResult(10, 103) // 3% over a 100 reference
	if fv := v.Validate(context.Background(), testOrder(), res, 100, nil); fv.OK {
		t.Fatalf("3%% price deviation must fail at 2%% tolerance")
	}

	// No reference price skips the price check.
	if fv := v.Validate(context.Background(), testOrder(), res, 0, nil); !fv.OK {
		t.Fatalf("zero reference must skip price check: %s", fv.Message)
	}
}

func TestValidateConfirmsWithBroker(t *testing.T) {
	v := NewFillValidator(fillCfg())
	b := newFakeBroker("paper", 100)
	res, err := b.Submit(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if fv := v.Validate(context.Background(), testOrder(), res, 100, b); !fv.OK {
		t.Fatalf("confirmed fill rejected: %s", fv.Message)
	}
}

func TestValidateRejectsUnconfirmableFill(t *testing.T) {
	v := NewFillValidator(fillCfg())
	b := newFakeBroker("paper", 100)
	b.getErr = context.DeadlineExceeded

	res := filledResult(10, 100)
	if fv := v.Validate(context.Background(), testOrder(), res, 100, b); fv.OK {
		t.Fatalf("fill the broker cannot confirm must fail")
	}
}

func TestValidateRejectsConfirmationMismatch(t *testing.T) {
	v := NewFillValidator(fillCfg())
	b := newFakeBroker("paper", 100)
	res, err := b.Submit(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ghost := *res
	ghost.FillQuantity = res.FillQuantity + 1
	b.ghostFill = &ghost

	if fv := v.Validate(context.Background(), testOrder(), res, 100, b); fv.OK {
		t.Fatalf("confirmation quantity mismatch must fail")
	}
}
